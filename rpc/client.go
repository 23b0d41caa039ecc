package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gertjaap/stratum-go/util"
)

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Error is a failure reported by the node itself.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("node rpc error %d: %s", e.Code, e.Message)
}

// Client talks bitcoind's JSON-RPC over HTTP POST with basic auth.
type Client struct {
	http     *http.Client
	url      string
	user     string
	password string
	lastID   atomic.Uint64
}

func NewClient(host string, port int, user, password string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		url:      fmt.Sprintf("http://%s:%d", host, port),
		user:     user,
		password: password,
	}
}

// Call invokes method and returns its raw result. A node side failure is
// returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := util.FastJSONMarshal(request{JSONRPC: "1.0", ID: c.lastID.Add(1), Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(c.user, c.password)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading reply: %w", method, err)
	}

	var resp response
	if err := util.FastJSONUnmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: HTTP %d with undecodable body %q", method, httpResp.StatusCode, raw)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// GetBlockTemplate asks for a segwit template.
func (c *Client) GetBlockTemplate(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "getblocktemplate", map[string][]string{"rules": {"segwit"}})
}

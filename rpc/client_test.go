package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	p, _ := strconv.Atoi(port)
	return NewClient(host, p, "user", "pass")
}

func TestCall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "pass" {
			t.Errorf("Missing basic auth, got %q/%q", user, pass)
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		if req.Method != "getblocktemplate" || len(req.Params) != 1 {
			t.Errorf("Unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"result":{"height":101},"error":null,"id":1}`))
	})

	raw, err := c.GetBlockTemplate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var out struct{ Height int }
	if err := json.Unmarshal(raw, &out); err != nil || out.Height != 101 {
		t.Fatalf("Unexpected result %s (%v)", raw, err)
	}
}

func TestCallError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":null,"error":{"code":-10,"message":"Bitcoin Core is in initial sync"},"id":1}`))
	})

	_, err := c.Call(context.Background(), "getblocktemplate")
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if rpcErr.Code != -10 {
		t.Errorf("Expected code -10, got %d", rpcErr.Code)
	}
}

package stratum

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gertjaap/stratum-go/util"
)

// Method is the "method" member of a request frame.
type Method string

const (
	MethodSubscribe     Method = "mining.subscribe"
	MethodAuthorize     Method = "mining.authorize"
	MethodSetDifficulty Method = "mining.set_difficulty"
	MethodNotify        Method = "mining.notify"
	MethodSubmit        Method = "mining.submit"

	// Recognised on the wire but not part of the message catalog.
	MethodExtranonceSubscribe Method = "mining.extranonce.subscribe"
	MethodConfigure           Method = "mining.configure"
	MethodSetExtranonce       Method = "mining.set_extranonce"
	MethodReconnect           Method = "client.reconnect"
	MethodGetVersion          Method = "client.get_version"
	MethodShowMessage         Method = "client.show_message"
)

// Frame is one line on the wire: either a *Request or a *Response.
type Frame interface {
	// FrameID returns the id and whether one was present. Notifications
	// (requests with a null id) return false.
	FrameID() (uint32, bool)
	isFrame()
}

// RequestPayload is the method tag plus its ordered parameter array.
type RequestPayload struct {
	Method Method
	Params json.RawMessage
}

// Request is a method call or, with a nil ID, a one-way notification.
type Request struct {
	ID *uint32
	RequestPayload
}

func (r *Request) FrameID() (uint32, bool) {
	if r.ID == nil {
		return 0, false
	}
	return *r.ID, true
}

func (*Request) isFrame() {}

type requestWire struct {
	ID     *uint32         `json:"id"`
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	params := r.Params
	if params == nil {
		params = json.RawMessage("[]")
	}
	return util.FastJSONMarshal(requestWire{ID: r.ID, Method: r.Method, Params: params})
}

func (r *Request) UnmarshalJSON(data []byte) error {
	f, err := ParseFrame(data)
	if err != nil {
		return err
	}
	req, ok := f.(*Request)
	if !ok {
		return fmt.Errorf("%w: got a response where a request was expected", ErrEnvelope)
	}
	*r = *req
	return nil
}

// StratumError is the error member of a response. On the wire it is the
// positional triple [code, message, detail].
type StratumError struct {
	Code    int
	Message string
	Detail  json.RawMessage
}

func (e *StratumError) Error() string {
	return fmt.Sprintf("stratum error %d: %s", e.Code, e.Message)
}

func (e StratumError) MarshalJSON() ([]byte, error) {
	detail := e.Detail
	if detail == nil {
		detail = json.RawMessage("null")
	}
	return util.FastJSONMarshal([]any{e.Code, e.Message, detail})
}

// UnmarshalJSON accepts the positional triple (detail optional) and also
// the {"code","message","data"} object some pools send instead.
func (e *StratumError) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Code    *int            `json:"code"`
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data"`
		}
		if err := util.FastJSONUnmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("%w: error object: %v", ErrEnvelope, err)
		}
		if obj.Code == nil {
			return fmt.Errorf("%w: error object without code", ErrEnvelope)
		}
		*e = StratumError{Code: *obj.Code, Message: obj.Message, Detail: nullToNil(obj.Data)}
		return nil
	}
	var out StratumError
	var detail json.RawMessage
	if err := unmarshalTuple(trimmed, 2, &out.Code, &out.Message, &detail); err != nil {
		return fmt.Errorf("%w: error triple: %v", ErrEnvelope, err)
	}
	out.Detail = nullToNil(detail)
	*e = out
	return nil
}

// ResponsePayload carries exactly one of Result or Error. Build it with
// NewResponsePayload to have that checked.
type ResponsePayload struct {
	Result json.RawMessage
	Error  *StratumError
}

// NewResponsePayload rejects a payload with both a result and an error, or
// with neither. A JSON null result counts as no result.
func NewResponsePayload(result json.RawMessage, stratumErr *StratumError) (ResponsePayload, error) {
	hasResult := !isNull(result)
	hasError := stratumErr != nil
	if hasResult == hasError {
		return ResponsePayload{}, ErrResponseShape
	}
	if !hasResult {
		result = nil
	}
	return ResponsePayload{Result: result, Error: stratumErr}, nil
}

// Response answers the request carrying the same ID.
type Response struct {
	ID uint32
	ResponsePayload
}

// NewResponse builds a response frame, enforcing result xor error.
func NewResponse(id uint32, result json.RawMessage, stratumErr *StratumError) (*Response, error) {
	p, err := NewResponsePayload(result, stratumErr)
	if err != nil {
		return nil, err
	}
	return &Response{ID: id, ResponsePayload: p}, nil
}

func (r *Response) FrameID() (uint32, bool) {
	return r.ID, true
}

func (*Response) isFrame() {}

type responseWire struct {
	ID     uint32          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *StratumError   `json:"error"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	result := r.Result
	if result == nil {
		result = json.RawMessage("null")
	}
	return util.FastJSONMarshal(responseWire{ID: r.ID, Result: result, Error: r.Error})
}

func (r *Response) UnmarshalJSON(data []byte) error {
	f, err := ParseFrame(data)
	if err != nil {
		return err
	}
	resp, ok := f.(*Response)
	if !ok {
		return fmt.Errorf("%w: got a request where a response was expected", ErrEnvelope)
	}
	*r = *resp
	return nil
}

type envelope struct {
	ID     json.RawMessage `json:"id"`
	Method json.RawMessage `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// ParseFrame decodes one line into a *Request (when a method is present) or
// a *Response.
func ParseFrame(line []byte) (Frame, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, fmt.Errorf("%w: not a json object", ErrMalformedJSON)
	}
	var env envelope
	if err := util.FastJSONUnmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if !isNull(env.Method) {
		return parseRequest(&env)
	}
	return parseResponse(&env)
}

func parseRequest(env *envelope) (*Request, error) {
	var method string
	if err := util.FastJSONUnmarshal(env.Method, &method); err != nil {
		return nil, fmt.Errorf("%w: method must be a string", ErrEnvelope)
	}
	if method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrEnvelope)
	}
	if !isNull(env.Result) || !isNull(env.Error) {
		return nil, fmt.Errorf("%w: request %q carries result or error", ErrEnvelope, method)
	}
	params := bytes.TrimSpace(env.Params)
	if len(params) == 0 || params[0] != '[' {
		return nil, fmt.Errorf("%w: request %q params must be an array", ErrEnvelope, method)
	}

	req := &Request{RequestPayload: RequestPayload{Method: Method(method), Params: json.RawMessage(params)}}
	if !isNull(env.ID) {
		id, err := parseID(env.ID)
		if err != nil {
			return nil, err
		}
		req.ID = &id
	}
	return req, nil
}

func parseResponse(env *envelope) (*Response, error) {
	if env.Result == nil && env.Error == nil {
		return nil, fmt.Errorf("%w: neither method nor result/error present", ErrEnvelope)
	}
	if isNull(env.ID) {
		return nil, fmt.Errorf("%w: response without id", ErrEnvelope)
	}
	id, err := parseID(env.ID)
	if err != nil {
		return nil, err
	}

	var stratumErr *StratumError
	if !isNull(env.Error) {
		stratumErr = &StratumError{}
		if err := stratumErr.UnmarshalJSON(env.Error); err != nil {
			return nil, err
		}
	}
	p, err := NewResponsePayload(env.Result, stratumErr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	return &Response{ID: id, ResponsePayload: p}, nil
}

func parseID(raw json.RawMessage) (uint32, error) {
	var id uint32
	if err := util.FastJSONUnmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("%w: id %s is not an unsigned integer", ErrEnvelope, raw)
	}
	return id, nil
}

// MarshalFrame renders f as a single newline terminated line.
func MarshalFrame(f Frame) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch v := f.(type) {
	case *Request:
		b, err = v.MarshalJSON()
	case *Response:
		b, err = v.MarshalJSON()
	default:
		return nil, fmt.Errorf("%w: unknown frame type %T", ErrSerialize, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return append(b, '\n'), nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	return raw
}

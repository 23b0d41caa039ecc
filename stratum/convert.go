package stratum

import (
	"encoding/json"
	"fmt"
)

// RequestMessage is a catalog message that travels as request params.
type RequestMessage interface {
	Message
	json.Marshaler
	Method() Method
}

// ResultMessage is a catalog message that travels as a response result.
type ResultMessage interface {
	Message
	json.Marshaler
	isResult()
}

type requestPtr[M any] interface {
	*M
	RequestMessage
	json.Unmarshaler
}

type resultPtr[M any] interface {
	*M
	ResultMessage
	json.Unmarshaler
}

// NewRequestPayload serializes msg's fields into its positional params and
// tags them with msg's method. A failure here is a bug in the message, not
// bad input.
func NewRequestPayload(msg RequestMessage) (RequestPayload, error) {
	params, err := msg.MarshalJSON()
	if err != nil {
		return RequestPayload{}, fmt.Errorf("%w: %s params: %v", ErrSerialize, msg.Method(), err)
	}
	return RequestPayload{Method: msg.Method(), Params: params}, nil
}

// DecodeRequest converts p into message type M. Picking M from p.Method is
// the caller's job (see DecodeRequestMessage); a payload for another method
// fails with ErrMethodMismatch.
func DecodeRequest[M any, P requestPtr[M]](p RequestPayload) (*M, error) {
	m := new(M)
	msg := P(m)
	if p.Method != msg.Method() {
		return nil, fmt.Errorf("%w: payload is %q, target is %q", ErrMethodMismatch, p.Method, msg.Method())
	}
	if err := msg.UnmarshalJSON(p.Params); err != nil {
		return nil, fmt.Errorf("%s: %w", p.Method, err)
	}
	return m, nil
}

// NewResultPayload wraps msg as a successful result.
func NewResultPayload(msg ResultMessage) (ResponsePayload, error) {
	result, err := msg.MarshalJSON()
	if err != nil {
		return ResponsePayload{}, fmt.Errorf("%w: %T result: %v", ErrSerialize, msg, err)
	}
	return ResponsePayload{Result: result}, nil
}

// DecodeResult converts the result of p into message type M. A payload
// carrying an error fails with ErrNoResult wrapping the *StratumError.
func DecodeResult[M any, P resultPtr[M]](p ResponsePayload) (*M, error) {
	if p.Error != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResult, p.Error)
	}
	if isNull(p.Result) {
		return nil, ErrNoResult
	}
	m := new(M)
	if err := P(m).UnmarshalJSON(p.Result); err != nil {
		return nil, fmt.Errorf("%T: %w", m, err)
	}
	return m, nil
}

// NewRequest builds a request frame for msg with the given id.
func NewRequest(id uint32, msg RequestMessage) (*Request, error) {
	p, err := NewRequestPayload(msg)
	if err != nil {
		return nil, err
	}
	return &Request{ID: &id, RequestPayload: p}, nil
}

// NewNotification builds a request frame with a null id, the way pools push
// mining.notify and mining.set_difficulty.
func NewNotification(msg RequestMessage) (*Request, error) {
	p, err := NewRequestPayload(msg)
	if err != nil {
		return nil, err
	}
	return &Request{RequestPayload: p}, nil
}

// NewResultResponse answers request id with msg.
func NewResultResponse(id uint32, msg ResultMessage) (*Response, error) {
	p, err := NewResultPayload(msg)
	if err != nil {
		return nil, err
	}
	return &Response{ID: id, ResponsePayload: p}, nil
}

// NewErrorResponse answers request id with e. A nil e fails with
// ErrResponseShape.
func NewErrorResponse(id uint32, e *StratumError) (*Response, error) {
	return NewResponse(id, nil, e)
}

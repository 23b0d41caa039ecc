package stratum

import "fmt"

type requestDecoder func(RequestPayload) (RequestMessage, error)

type resultDecoder func(ResponsePayload) (ResultMessage, error)

// requestRoutes maps a request method to the catalog type it decodes into.
// Adding a message means adding its type and one entry here.
var requestRoutes = map[Method]requestDecoder{
	MethodSubscribe:     decodeRequestAs[Subscribe, *Subscribe],
	MethodAuthorize:     decodeRequestAs[Authorize, *Authorize],
	MethodSetDifficulty: decodeRequestAs[SetDifficulty, *SetDifficulty],
	MethodNotify:        decodeRequestAs[Notify, *Notify],
	MethodSubmit:        decodeRequestAs[Submit, *Submit],
}

// resultRoutes maps the method of the originating request to the result
// type its response carries.
var resultRoutes = map[Method]resultDecoder{
	MethodSubscribe:           decodeResultAs[SubscribeResult, *SubscribeResult],
	MethodAuthorize:           decodeResultAs[BooleanResult, *BooleanResult],
	MethodSubmit:              decodeResultAs[BooleanResult, *BooleanResult],
	MethodExtranonceSubscribe: decodeResultAs[BooleanResult, *BooleanResult],
}

func decodeRequestAs[M any, P requestPtr[M]](p RequestPayload) (RequestMessage, error) {
	m, err := DecodeRequest[M, P](p)
	if err != nil {
		return nil, err
	}
	return P(m), nil
}

func decodeResultAs[M any, P resultPtr[M]](p ResponsePayload) (ResultMessage, error) {
	m, err := DecodeResult[M, P](p)
	if err != nil {
		return nil, err
	}
	return P(m), nil
}

// DecodeRequestMessage picks the catalog type for req.Method and decodes
// the params into it.
func DecodeRequestMessage(req *Request) (RequestMessage, error) {
	decode, ok := requestRoutes[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}
	return decode(req.RequestPayload)
}

// DecodeResultMessage decodes resp as the answer to a request sent with
// method origin. Matching resp.ID to that request is the caller's job.
func DecodeResultMessage(resp *Response, origin Method) (ResultMessage, error) {
	decode, ok := resultRoutes[origin]
	if !ok {
		return nil, fmt.Errorf("%w: no result type for %q", ErrUnknownMethod, origin)
	}
	return decode(resp.ResponsePayload)
}

// DispatchRequest decodes req and delivers it to h.
func DispatchRequest(req *Request, h Handler) error {
	msg, err := DecodeRequestMessage(req)
	if err != nil {
		return err
	}
	msg.Accept(req, h)
	return nil
}

// DispatchResponse decodes resp as the answer to origin and delivers it
// to h.
func DispatchResponse(resp *Response, origin Method, h Handler) error {
	msg, err := DecodeResultMessage(resp, origin)
	if err != nil {
		return err
	}
	msg.Accept(resp, h)
	return nil
}

package stratum

import (
	"github.com/gertjaap/stratum-go/logging"
)

// Message is implemented by every catalog type. Accept calls the one
// Handler method for the message's own variant, passing along the frame it
// arrived in so responses can be correlated by id.
type Message interface {
	Accept(f Frame, h Handler)
}

// Handler has one method per catalog variant.
type Handler interface {
	VisitSubscribe(f Frame, m *Subscribe)
	VisitAuthorize(f Frame, m *Authorize)
	VisitSetDifficulty(f Frame, m *SetDifficulty)
	VisitNotify(f Frame, m *Notify)
	VisitSubmit(f Frame, m *Submit)
	VisitSubscribeResult(f Frame, m *SubscribeResult)
	VisitBooleanResult(f Frame, m *BooleanResult)
}

// BaseHandler implements every Handler method by logging a warning. Role
// specific handlers embed it and override the variants they expect; one of
// these warnings showing up means a message reached a handler that was not
// built for it.
type BaseHandler struct {
	Role string
}

func (b BaseHandler) unexpected(f Frame, m Message) {
	id, hasID := f.FrameID()
	fields := logging.Fields{"role": b.Role, "message": m}
	if hasID {
		fields["id"] = id
	}
	logging.WithFields(fields).Warnf("Stratum: unexpected %T delivered to handler", m)
}

func (b BaseHandler) VisitSubscribe(f Frame, m *Subscribe)             { b.unexpected(f, m) }
func (b BaseHandler) VisitAuthorize(f Frame, m *Authorize)             { b.unexpected(f, m) }
func (b BaseHandler) VisitSetDifficulty(f Frame, m *SetDifficulty)     { b.unexpected(f, m) }
func (b BaseHandler) VisitNotify(f Frame, m *Notify)                   { b.unexpected(f, m) }
func (b BaseHandler) VisitSubmit(f Frame, m *Submit)                   { b.unexpected(f, m) }
func (b BaseHandler) VisitSubscribeResult(f Frame, m *SubscribeResult) { b.unexpected(f, m) }
func (b BaseHandler) VisitBooleanResult(f Frame, m *BooleanResult)     { b.unexpected(f, m) }

package stratum

import (
	"encoding/hex"

	"github.com/sirupsen/logrus"

	"github.com/gertjaap/stratum-go/logging"
)

// minerSession is the pool side handler for one connection.
type minerSession struct {
	BaseHandler
	srv    *StratumServer
	client *Client
	log    *logrus.Entry
}

var _ Handler = (*minerSession)(nil)

func (s *minerSession) reply(f Frame, msg ResultMessage) {
	id, ok := f.FrameID()
	if !ok {
		return
	}
	resp, err := NewResultResponse(id, msg)
	if err == nil {
		err = s.client.Send(resp)
	}
	if err != nil {
		s.log.WithError(err).Warn("Stratum: Failed to send response")
	}
}

func (s *minerSession) replyError(f Frame, e *StratumError) {
	id, ok := f.FrameID()
	if !ok {
		return
	}
	resp, err := NewErrorResponse(id, e)
	if err == nil {
		err = s.client.Send(resp)
	}
	if err != nil {
		s.log.WithError(err).Warn("Stratum: Failed to send error response")
	}
}

func (s *minerSession) VisitSubscribe(f Frame, m *Subscribe) {
	c := s.client
	c.Mutex.Lock()
	c.Subscribed = true
	authorized := c.Authorized
	c.Mutex.Unlock()

	agent := ""
	if m.AgentSignature != nil {
		agent = *m.AgentSignature
	}
	s.log.WithField("agent", agent).Infof("Stratum: Miner subscribed with extranonce1 %s", c.ExtraNonce1)

	s.reply(f, &SubscribeResult{
		Subscriptions: []Subscription{
			{Class: string(MethodSetDifficulty), ID: c.SubscriptionID},
			{Class: string(MethodNotify), ID: c.SubscriptionID},
		},
		ExtraNonce1:     c.ExtraNonce1,
		ExtraNonce2Size: c.Nonce2Size,
	})
	// Miners that logged in first get their work once they know extranonce1.
	if authorized {
		s.srv.sendDifficulty(c, s.log)
		s.srv.sendMiningJob(c, s.log)
	}
}

func (s *minerSession) VisitAuthorize(f Frame, m *Authorize) {
	c := s.client
	ok := s.srv.authorize(m)
	if !ok {
		s.log.WithField("worker", m.Name).Warn("Stratum: Rejected worker authorization")
		s.reply(f, NewBooleanResult(false))
		return
	}

	c.Mutex.Lock()
	c.Authorized = true
	if c.WorkerName == "" {
		c.WorkerName = m.Name
	}
	c.Workers[m.Name] = true
	subscribed := c.Subscribed
	c.Mutex.Unlock()

	logging.Successf("Stratum: Authorized worker %s", m.Name)
	s.reply(f, NewBooleanResult(true))
	if subscribed {
		s.srv.sendDifficulty(c, s.log)
		s.srv.sendMiningJob(c, s.log)
	}
}

func (s *minerSession) VisitSubmit(f Frame, m *Submit) {
	if e := s.checkSubmit(m); e != nil {
		s.srv.rejected.Add(1)
		s.log.WithFields(logging.Fields{"worker": m.UserName(), "job": hex.EncodeToString(m.JobID()), "code": e.Code}).
			Infof("Stratum: Share rejected: %s", e.Message)
		s.replyError(f, e)
		return
	}
	s.srv.accepted.Add(1)
	logging.Successf("Stratum: Share accepted from %s for job %x", m.UserName(), m.JobID())
	s.reply(f, NewBooleanResult(true))
}

func (s *minerSession) checkSubmit(m *Submit) *StratumError {
	c := s.client
	c.Mutex.Lock()
	if !c.Subscribed {
		c.Mutex.Unlock()
		return NewNotSubscribedError()
	}
	if !c.Authorized || !c.Workers[m.UserName()] {
		c.Mutex.Unlock()
		return NewUnauthorizedError()
	}
	job, ok := c.ActiveJobs[hex.EncodeToString(m.JobID())]
	if !ok {
		c.Mutex.Unlock()
		return NewJobNotFoundError()
	}
	if len(m.ExtraNonce2()) != c.Nonce2Size {
		c.Mutex.Unlock()
		return NewOtherError("Incorrect size of extranonce2")
	}
	if !c.markSubmitted(m) {
		c.Mutex.Unlock()
		return NewDuplicateShareError()
	}
	c.Mutex.Unlock()

	if s.srv.validator != nil {
		return s.srv.validator.ValidateShare(c, job, m)
	}
	return nil
}

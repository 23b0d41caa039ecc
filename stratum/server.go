package stratum

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"github.com/sirupsen/logrus"

	"github.com/gertjaap/stratum-go/logging"
)

// Authorizer decides whether a mining.authorize succeeds.
type Authorizer func(a *Authorize) bool

// AllowAll authorizes every worker.
func AllowAll(*Authorize) bool { return true }

// ShareValidator checks the proof of work of a submit that already passed
// the protocol checks. A nil result accepts the share.
type ShareValidator interface {
	ValidateShare(c *Client, job *Job, s *Submit) *StratumError
}

type Options struct {
	ExtraNonce1Size   int
	ExtraNonce2Size   int
	InitialDifficulty float64
	IdleTimeout       time.Duration
	MaxLineBytes      int
	// MaxConnections caps concurrently served miners. Zero means no cap.
	MaxConnections int
}

// Stats is a point in time view of the server for the status page.
type Stats struct {
	Connections    int
	Authorized     int
	SharesAccepted uint64
	SharesRejected uint64
	Difficulty     float64
	CurrentJob     string
	Uptime         time.Duration
	Miners         []MinerStats
}

// MinerStats describes one connected miner.
type MinerStats struct {
	ID           uint64
	Remote       string
	Worker       string
	Authorized   bool
	LastActivity time.Time
}

type StratumServer struct {
	opts      Options
	authorize Authorizer
	validator ShareValidator
	startedAt time.Time
	slots     *sizedwaitgroup.SizedWaitGroup

	nextClientID atomic.Uint64
	accepted     atomic.Uint64
	rejected     atomic.Uint64

	mu         sync.RWMutex
	clients    map[uint64]*Client
	currentJob *Job
	difficulty float64
}

func NewStratumServer(opts Options) *StratumServer {
	if opts.ExtraNonce1Size <= 0 {
		opts.ExtraNonce1Size = 4
	}
	if opts.ExtraNonce2Size <= 0 {
		opts.ExtraNonce2Size = 4
	}
	if opts.InitialDifficulty <= 0 {
		opts.InitialDifficulty = 1
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 16 * 1024
	}
	s := &StratumServer{
		opts:       opts,
		authorize:  AllowAll,
		startedAt:  time.Now(),
		clients:    make(map[uint64]*Client),
		difficulty: opts.InitialDifficulty,
	}
	if opts.MaxConnections > 0 {
		swg := sizedwaitgroup.New(opts.MaxConnections)
		s.slots = &swg
	}
	return s
}

func (s *StratumServer) SetAuthorizer(a Authorizer) {
	s.authorize = a
}

func (s *StratumServer) SetShareValidator(v ShareValidator) {
	s.validator = v
}

// Serve accepts miners on l until it is closed. With MaxConnections set,
// accepting pauses while all slots are taken.
func (s *StratumServer) Serve(l net.Listener) error {
	logging.Infof("Stratum: Listening for miners on %s", l.Addr())
	for {
		if s.slots != nil {
			s.slots.Add()
		}
		conn, err := l.Accept()
		if err != nil && s.slots != nil {
			s.slots.Done()
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logging.Warnf("Stratum: Failed to accept new connection: %v", err)
				continue
			}
			return err
		}
		go func() {
			if s.slots != nil {
				defer s.slots.Done()
			}
			s.ServeConn(conn)
		}()
	}
}

// ServeConn runs the read loop for one miner until it disconnects.
func (s *StratumServer) ServeConn(conn net.Conn) {
	defer conn.Close()

	client, err := NewClient(conn, s.opts.ExtraNonce1Size, s.opts.ExtraNonce2Size)
	if err != nil {
		logging.Errorf("Stratum: Could not set up miner %s: %v", conn.RemoteAddr(), err)
		return
	}
	client.ID = s.nextClientID.Add(1)
	s.register(client)
	defer s.unregister(client)

	log := logging.WithFields(logging.Fields{"remote": conn.RemoteAddr().String(), "client": client.ID})
	log.Infof("Stratum: New miner connection")

	session := &minerSession{BaseHandler: BaseHandler{Role: "pool"}, srv: s, client: client, log: log}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), s.opts.MaxLineBytes)
	for {
		if s.opts.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		}
		if !scanner.Scan() {
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		client.touch()
		s.handleLine(session, line)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("Stratum: Error reading from miner")
	}
	log.Infof("Stratum: Miner disconnected.")
}

func (s *StratumServer) handleLine(session *minerSession, line []byte) {
	frame, err := ParseFrame(line)
	if err != nil {
		session.log.WithError(err).Warn("Stratum: Dropping unparseable frame")
		return
	}
	switch f := frame.(type) {
	case *Request:
		if err := DispatchRequest(f, session); err != nil {
			session.log.WithError(err).Warnf("Stratum: Could not handle %s", f.Method)
			reason := "Malformed request"
			if errors.Is(err, ErrUnknownMethod) {
				reason = "Unsupported method"
			}
			session.replyError(f, NewOtherError(reason))
		}
	case *Response:
		session.log.Debugf("Stratum: Ignoring response id %d from miner", f.ID)
	}
}

func (s *StratumServer) register(c *Client) {
	s.mu.Lock()
	s.clients[c.ID] = c
	s.mu.Unlock()
}

func (s *StratumServer) unregister(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ID)
	s.mu.Unlock()
}

func (s *StratumServer) authorizedClients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		c.Mutex.Lock()
		ok := c.Authorized
		c.Mutex.Unlock()
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// Broadcast makes n the current job and pushes it to every authorized
// miner.
func (s *StratumServer) Broadcast(n *Notify) error {
	req, err := NewNotification(n)
	if err != nil {
		return err
	}
	s.mu.Lock()
	job := NewJob(n, s.difficulty)
	s.currentJob = job
	s.mu.Unlock()

	clients := s.authorizedClients()
	for _, c := range clients {
		c.TrackJob(job)
		if err := c.Send(req); err != nil {
			logging.Warnf("Stratum: Failed to send job to %s: %v", c.Conn.RemoteAddr(), err)
		}
	}
	logging.Noticef("Stratum: Sent new job %s to %d miners", job.ID, len(clients))
	return nil
}

// SetDifficulty changes the share difficulty for every authorized miner.
func (s *StratumServer) SetDifficulty(d float64) error {
	req, err := NewNotification(&SetDifficulty{Difficulty: d})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.difficulty = d
	s.mu.Unlock()
	for _, c := range s.authorizedClients() {
		if err := c.Send(req); err != nil {
			logging.Warnf("Stratum: Failed to send difficulty to %s: %v", c.Conn.RemoteAddr(), err)
		}
	}
	return nil
}

func (s *StratumServer) sendDifficulty(c *Client, log *logrus.Entry) {
	s.mu.RLock()
	d := s.difficulty
	s.mu.RUnlock()
	req, err := NewNotification(&SetDifficulty{Difficulty: d})
	if err == nil {
		err = c.Send(req)
	}
	if err != nil {
		log.WithError(err).Warn("Stratum: Failed to send difficulty")
	}
}

func (s *StratumServer) sendMiningJob(c *Client, log *logrus.Entry) {
	s.mu.RLock()
	job := s.currentJob
	s.mu.RUnlock()
	if job == nil {
		log.Warn("Stratum: No job available to send to miner")
		return
	}
	c.TrackJob(job)
	req, err := NewNotification(job.Notify)
	if err == nil {
		err = c.Send(req)
	}
	if err != nil {
		log.WithError(err).Warn("Stratum: Failed to send job")
		return
	}
	log.Infof("Stratum: Sent job %s to worker %s", job.ID, c.WorkerName)
}

func (s *StratumServer) Stats() Stats {
	s.mu.RLock()
	st := Stats{
		Connections: len(s.clients),
		Difficulty:  s.difficulty,
	}
	if s.currentJob != nil {
		st.CurrentJob = s.currentJob.ID
	}
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.Mutex.Lock()
		ms := MinerStats{
			ID:           c.ID,
			Remote:       c.Conn.RemoteAddr().String(),
			Worker:       c.WorkerName,
			Authorized:   c.Authorized,
			LastActivity: c.LastActivity,
		}
		c.Mutex.Unlock()
		if ms.Authorized {
			st.Authorized++
		}
		st.Miners = append(st.Miners, ms)
	}
	sort.Slice(st.Miners, func(i, j int) bool { return st.Miners[i].ID < st.Miners[j].ID })
	st.SharesAccepted = s.accepted.Load()
	st.SharesRejected = s.rejected.Load()
	st.Uptime = time.Since(s.startedAt)
	return st
}

package stratum

import (
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/gertjaap/stratum-go/util"
)

// maxActiveJobs bounds how many past jobs a miner may still submit against.
const maxActiveJobs = 8

// Client represents a single connected miner.
type Client struct {
	Conn           net.Conn
	ID             uint64
	SubscriptionID string
	ExtraNonce1    ExtraNonce1
	Nonce2Size     int
	Mutex          sync.Mutex
	WorkerName     string
	Workers        map[string]bool
	Subscribed     bool
	Authorized     bool
	LastActivity   time.Time
	ActiveJobs     map[string]*Job
	jobOrder       []string
	submitted      map[string]map[string]struct{}
	writeMu        sync.Mutex
	writeTimeout   time.Duration
}

// NewClient creates a new Stratum client object with a fresh extranonce1
// and subscription id.
func NewClient(conn net.Conn, extraNonce1Size, nonce2Size int) (*Client, error) {
	extraNonce1Bytes, err := util.RandomBytes(extraNonce1Size)
	if err != nil {
		return nil, err
	}
	en1 := NewExtraNonce1(extraNonce1Bytes)

	return &Client{
		Conn:           conn,
		SubscriptionID: ksuid.New().String(),
		ExtraNonce1:    en1,
		Nonce2Size:     nonce2Size,
		Workers:        make(map[string]bool),
		LastActivity:   time.Now(),
		ActiveJobs:     make(map[string]*Job),
		submitted:      make(map[string]map[string]struct{}),
		writeTimeout:   10 * time.Second,
	}, nil
}

// Send writes f as one line. Safe for concurrent use.
func (c *Client) Send(f Frame) error {
	b, err := MarshalFrame(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err = c.Conn.Write(b)
	return err
}

// TrackJob remembers j as submittable. A clean job forgets all earlier
// ones.
func (c *Client) TrackJob(j *Job) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if j.Notify.CleanJobs() {
		c.ActiveJobs = make(map[string]*Job)
		c.jobOrder = c.jobOrder[:0]
		c.submitted = make(map[string]map[string]struct{})
	}
	if _, ok := c.ActiveJobs[j.ID]; !ok {
		c.jobOrder = append(c.jobOrder, j.ID)
	}
	c.ActiveJobs[j.ID] = j
	for len(c.jobOrder) > maxActiveJobs {
		delete(c.ActiveJobs, c.jobOrder[0])
		delete(c.submitted, c.jobOrder[0])
		c.jobOrder = c.jobOrder[1:]
	}
}

// markSubmitted records the share under its job and reports whether it was
// new. Callers hold c.Mutex.
func (c *Client) markSubmitted(s *Submit) bool {
	jobID := hex.EncodeToString(s.JobID())
	shares, ok := c.submitted[jobID]
	if !ok {
		shares = make(map[string]struct{})
		c.submitted[jobID] = shares
	}
	key := fmt.Sprintf("%x:%08x:%08x:%08x", s.ExtraNonce2(), s.Time(), s.Nonce(), s.Version())
	if _, dup := shares[key]; dup {
		return false
	}
	shares[key] = struct{}{}
	return true
}

func (c *Client) touch() {
	c.Mutex.Lock()
	c.LastActivity = time.Now()
	c.Mutex.Unlock()
}

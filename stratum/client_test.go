package stratum

import (
	"net"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	c, err := NewClient(a, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	c := newTestClient(t)
	if len(c.ExtraNonce1.Bytes()) != 4 || c.Nonce2Size != 4 {
		t.Fatalf("Unexpected client %+v", c)
	}
	if c.SubscriptionID == "" {
		t.Fatal("Expected a subscription id")
	}
	if other := newTestClient(t); other.SubscriptionID == c.SubscriptionID {
		t.Fatal("Expected unique subscription ids")
	}
}

func TestTrackJobKeepsRecent(t *testing.T) {
	c := newTestClient(t)
	for i := 0; i < maxActiveJobs+3; i++ {
		c.TrackJob(NewJob(testJob(byte(i), false), 1))
	}
	if len(c.ActiveJobs) != maxActiveJobs {
		t.Fatalf("Expected %d active jobs, got %d", maxActiveJobs, len(c.ActiveJobs))
	}
	if _, ok := c.ActiveJobs["ab00"]; ok {
		t.Fatal("Oldest job should have been evicted")
	}
	if _, ok := c.ActiveJobs["ab0a"]; !ok {
		t.Fatal("Newest job missing")
	}

	c.TrackJob(NewJob(testJob(0x20, true), 1))
	if len(c.ActiveJobs) != 1 {
		t.Fatalf("Clean job should reset active jobs, got %d", len(c.ActiveJobs))
	}
}

func TestMarkSubmitted(t *testing.T) {
	c := newTestClient(t)
	s := NewSubmit("alice", NewJobID([]byte{1}), NewExtraNonce2([]byte{0, 0, 0, 1}), NewTime(1), NewNonce(2), NewVersion(3))
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if !c.markSubmitted(s) {
		t.Fatal("First submit should be new")
	}
	if c.markSubmitted(s) {
		t.Fatal("Second submit should be a duplicate")
	}
	other := NewSubmit("alice", NewJobID([]byte{1}), NewExtraNonce2([]byte{0, 0, 0, 1}), NewTime(1), NewNonce(3), NewVersion(3))
	if !c.markSubmitted(other) {
		t.Fatal("Different nonce should be new")
	}
}

func TestTrackJobForgetsEvictedShares(t *testing.T) {
	c := newTestClient(t)
	c.TrackJob(NewJob(testJob(0, false), 1))
	s := NewSubmit("alice", NewJobID([]byte{0xab, 0}), NewExtraNonce2([]byte{0, 0, 0, 1}), NewTime(1), NewNonce(2), NewVersion(3))
	c.Mutex.Lock()
	c.markSubmitted(s)
	c.Mutex.Unlock()
	if _, ok := c.submitted["ab00"]; !ok {
		t.Fatal("Expected shares recorded under job ab00")
	}

	for i := 1; i <= maxActiveJobs; i++ {
		c.TrackJob(NewJob(testJob(byte(i), false), 1))
	}
	if _, ok := c.ActiveJobs["ab00"]; ok {
		t.Fatal("Job ab00 should have been evicted")
	}
	if _, ok := c.submitted["ab00"]; ok {
		t.Fatal("Shares of an evicted job should be forgotten")
	}
	if len(c.submitted) != 0 {
		t.Fatalf("Expected no recorded shares, got %d jobs", len(c.submitted))
	}
}

package web

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gertjaap/stratum-go/stratum"
)

func TestDashboard(t *testing.T) {
	ss := stratum.NewStratumServer(stratum.Options{InitialDifficulty: 8})
	rec := httptest.NewRecorder()
	NewDashboard(ss).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
	var got status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Body is not json: %v", err)
	}
	if got.Difficulty != 8 {
		t.Errorf("Expected difficulty 8, got %v", got.Difficulty)
	}
	if got.Connections != 0 || got.CurrentJob != "" {
		t.Errorf("Expected an idle server, got %+v", got)
	}
}

func TestDashboardMiners(t *testing.T) {
	ss := stratum.NewStratumServer(stratum.Options{})
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	go ss.ServeConn(serverConn)

	_ = clientConn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := clientConn.Write([]byte(`{"id":1,"method":"mining.subscribe","params":[]}` + "\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := bufio.NewReader(clientConn).ReadBytes('\n'); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	NewDashboard(ss).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var got status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Body is not json: %v", err)
	}
	if len(got.Miners) != 1 {
		t.Fatalf("Expected one miner, got %+v", got.Miners)
	}
	m := got.Miners[0]
	if m.Authorized || m.IdleSecs < 0 || m.IdleSecs > 60 {
		t.Errorf("Unexpected miner entry %+v", m)
	}
}

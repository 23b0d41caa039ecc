package web

import (
	"net/http"
	"runtime"
	"time"

	"github.com/hako/durafmt"

	"github.com/gertjaap/stratum-go/logging"
	"github.com/gertjaap/stratum-go/stratum"
	"github.com/gertjaap/stratum-go/util"
)

type status struct {
	GoRoutines     int     `json:"go_routines"`
	Connections    int     `json:"connections"`
	Authorized     int     `json:"authorized_miners"`
	SharesAccepted uint64  `json:"shares_accepted"`
	SharesRejected uint64  `json:"shares_rejected"`
	Difficulty     float64 `json:"difficulty"`
	CurrentJob     string  `json:"current_job"`
	UptimeSecs     float64 `json:"uptime_secs"`
	Uptime         string  `json:"uptime"`
	Miners         []miner `json:"miners"`
}

type miner struct {
	ID         uint64  `json:"id"`
	Remote     string  `json:"remote"`
	Worker     string  `json:"worker"`
	Authorized bool    `json:"authorized"`
	IdleSecs   float64 `json:"idle_secs"`
	Idle       string  `json:"idle"`
}

// NewDashboard returns a trivial JSON status page at "/".
func NewDashboard(ss *stratum.StratumServer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats := ss.Stats()
		s := status{
			GoRoutines:     runtime.NumGoroutine(),
			Connections:    stats.Connections,
			Authorized:     stats.Authorized,
			SharesAccepted: stats.SharesAccepted,
			SharesRejected: stats.SharesRejected,
			Difficulty:     stats.Difficulty,
			CurrentJob:     stats.CurrentJob,
			UptimeSecs:     stats.Uptime.Seconds(),
			Uptime:         durafmt.Parse(stats.Uptime).LimitFirstN(2).String(),
			Miners:         make([]miner, 0, len(stats.Miners)),
		}
		for _, m := range stats.Miners {
			idle := time.Since(m.LastActivity)
			s.Miners = append(s.Miners, miner{
				ID:         m.ID,
				Remote:     m.Remote,
				Worker:     m.Worker,
				Authorized: m.Authorized,
				IdleSecs:   idle.Seconds(),
				Idle:       durafmt.Parse(idle).LimitFirstN(1).String(),
			})
		}
		b, err := util.FastJSONMarshal(s)
		if err != nil {
			logging.Errorf("WEB: Could not encode status: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	})
}

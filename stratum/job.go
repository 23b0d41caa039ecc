package stratum

import (
	"encoding/hex"
	"time"
)

type Job struct {
	ID         string
	Notify     *Notify
	Difficulty float64
	CreatedAt  time.Time
}

func NewJob(n *Notify, difficulty float64) *Job {
	return &Job{
		ID:         hex.EncodeToString(n.JobID()),
		Notify:     n,
		Difficulty: difficulty,
		CreatedAt:  time.Now(),
	}
}

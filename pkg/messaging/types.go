// Package messaging carries job events to the experiment while the jobs
// run.
package messaging

import (
	"time"
)

// EpochScore is published by a job after each testing phase
type EpochScore struct {
	Job         string
	Environment string
	Algorithm   string
	Epoch       int
	TrainStep   int64
	Score       float64
	Episodes    int
	Time        time.Time
}

// Publisher accepts the scores of running jobs
type Publisher interface {
	Publish(score EpochScore) error
}

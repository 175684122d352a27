// Package scheduler provides cron-based scheduling for ambient prints.
//
// Ambient schedules make the machine print unprompted, as if it had
// something to say. Jobs are registered with 5-field cron expressions and
// can be removed again by entry ID.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler. It accepts the standard
// 5-field expression format (min, hour, dom, month, dow) and recovers
// panicking jobs so one bad schedule cannot take down the machine.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression and returns the
// entry ID for later removal. It returns an error if the expression is
// invalid.
func (s *Scheduler) AddJob(expr string, task func()) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, task)
	if err != nil {
		return 0, err
	}
	slog.Debug("Scheduler.AddJob: job scheduled", "id", id, "expr", expr)
	return id, nil
}

// Remove drops a scheduled job. Removing an unknown ID is a no-op.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
	slog.Debug("Scheduler.Remove: job removed", "id", id)
}

// Next returns the next firing time for the given entry, or the zero time
// when no such entry exists.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

// Entries returns a snapshot of the scheduled jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

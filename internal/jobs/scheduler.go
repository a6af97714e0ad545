package jobs

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the cron engine. Schedules use the six-field form with seconds.
type Scheduler struct {
	engine    *cron.Cron
	reconcile *ReconcileJob
	schedule  string
}

func NewScheduler(reconcile *ReconcileJob, schedule string) *Scheduler {
	return &Scheduler{
		engine:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		reconcile: reconcile,
		schedule:  schedule,
	}
}

func (s *Scheduler) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.schedule, s.reconcile); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Start() {
	slog.Info("job scheduler started", "reconcile_schedule", s.schedule)
	s.engine.Start()
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.engine.Stop().Done()
	slog.Info("job scheduler stopped")
}

// Package jobs runs the Orchestrator's background collaborators on a cron
// schedule, grounded on aristath-sentinel's scheduler.Scheduler
// (trader-go/internal/scheduler/scheduler.go).
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one schedulable background collaborator (spec §4.10).
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Stats is the small in-memory per-job record spec §7 requires: "mark
// lastRun and errorCount in a small in-memory stats struct."
type Stats struct {
	LastRun    time.Time
	LastErr    error
	RunCount   int
	ErrorCount int
}

// Scheduler wraps robfig/cron and swallows every job error per spec §7
// ("all background jobs swallow their own errors, never crash the
// process").
type Scheduler struct {
	cron *cron.Cron

	mu    sync.Mutex
	stats map[string]*Stats
}

func New() *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		stats: make(map[string]*Stats),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("jobs: scheduler started")
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Info().Msg("jobs: scheduler stopped")
}

// AddJob registers job on the given 6-field cron schedule (seconds field
// first, since the scheduler is built with cron.WithSeconds).
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	s.stats[job.Name()] = &Stats{}
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		s.runOnce(context.Background(), job)
	})
	if err != nil {
		return err
	}
	log.Info().Str("job", job.Name()).Str("schedule", schedule).Msg("jobs: registered")
	return nil
}

// RunNow executes job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, job Job) {
	s.mu.Lock()
	if _, ok := s.stats[job.Name()]; !ok {
		s.stats[job.Name()] = &Stats{}
	}
	s.mu.Unlock()
	s.runOnce(ctx, job)
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)

	s.mu.Lock()
	st := s.stats[job.Name()]
	st.LastRun = start
	st.RunCount++
	if err != nil {
		st.LastErr = err
		st.ErrorCount++
	}
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("job", job.Name()).Dur("took", time.Since(start)).Msg("jobs: run failed")
		return
	}
	log.Debug().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("jobs: run completed")
}

// StatsFor returns a copy of job's stats, or a zero Stats if it was never
// registered.
func (s *Scheduler) StatsFor(name string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stats[name]; ok {
		return *st
	}
	return Stats{}
}

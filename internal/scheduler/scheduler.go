// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSessionSweepSchedule runs the session sweep every 15 minutes.
const DefaultSessionSweepSchedule = "*/15 * * * *"

// jobTimeout bounds a single run of any job.
const jobTimeout = 5 * time.Minute

// Sweeper removes session tracking rows whose session is gone or expired.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type job struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
}

// Scheduler handles scheduled maintenance tasks.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*job
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Add registers run under name with a standard five-field cron schedule.
func (s *Scheduler) Add(name, description, schedule string, run func(ctx context.Context) error) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", schedule, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job already registered: %s", name)
	}

	j := &job{name: name, description: description, schedule: schedule, run: run}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	j.entryID = id
	s.jobs[name] = j
	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// AddSessionSweep schedules the session tracking cleanup. onSwept, if set,
// receives the number of rows removed by each run.
func (s *Scheduler) AddSessionSweep(sw Sweeper, schedule string, onSwept func(n int64)) error {
	if schedule == "" {
		schedule = DefaultSessionSweepSchedule
	}
	return s.Add("session_sweep", "Remove tracking rows of expired sessions", schedule, func(ctx context.Context) error {
		n, err := sw.Sweep(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("swept expired sessions", "count", n)
		}
		if onSwept != nil {
			onSwept(n)
		}
		return nil
	})
}

func (s *Scheduler) execute(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "name", j.name, "error", err)
		return
	}
	s.logger.Debug("scheduled job finished", "name", j.name, "duration", time.Since(start))
}

// Jobs returns all registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		result = append(result, JobInfo{
			Name:        j.name,
			Description: j.description,
			Schedule:    j.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Name < result[b].Name })
	return result
}

// Trigger runs a job immediately in the calling goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}
	s.logger.Info("manually triggering job", "name", name)
	return j.run(ctx)
}

// Start begins running the registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
)

type fakeSweeper struct {
	calls int
	n     int64
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestNew(t *testing.T) {
	s := New(nil)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger == nil {
		t.Error("New() scheduler has nil logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(nil)
	if err := s.AddSessionSweep(&fakeSweeper{}, "", nil); err != nil {
		t.Fatalf("AddSessionSweep() error = %v", err)
	}
	s.Start()
	s.Stop()
}

func TestAdd_InvalidSchedule(t *testing.T) {
	tests := []string{"", "every minute", "* * *", "61 * * * *"}
	for _, schedule := range tests {
		t.Run(schedule, func(t *testing.T) {
			s := New(nil)
			err := s.Add("job", "", schedule, func(context.Context) error { return nil })
			if err == nil {
				t.Errorf("Add(%q) expected error", schedule)
			}
			if len(s.Jobs()) != 0 {
				t.Error("invalid job was registered")
			}
		})
	}
}

func TestAdd_Duplicate(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }
	if err := s.Add("job", "", "@hourly", noop); err != nil {
		t.Fatalf("first Add() error = %v", err)
	}
	if err := s.Add("job", "", "@hourly", noop); err == nil {
		t.Error("second Add() expected error")
	}
}

func TestJobs(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }
	_ = s.Add("zeta", "last", "@daily", noop)
	_ = s.AddSessionSweep(&fakeSweeper{}, "", nil)

	jobs := s.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("Jobs() returned %d jobs, want 2", len(jobs))
	}
	if jobs[0].Name != "session_sweep" || jobs[1].Name != "zeta" {
		t.Errorf("Jobs() not sorted: %q, %q", jobs[0].Name, jobs[1].Name)
	}
	if jobs[0].Schedule != DefaultSessionSweepSchedule {
		t.Errorf("session sweep schedule = %q, want %q", jobs[0].Schedule, DefaultSessionSweepSchedule)
	}
}

func TestTriggerSessionSweep(t *testing.T) {
	sw := &fakeSweeper{n: 3}
	var swept int64
	s := New(nil)
	if err := s.AddSessionSweep(sw, "*/5 * * * *", func(n int64) { swept += n }); err != nil {
		t.Fatalf("AddSessionSweep() error = %v", err)
	}

	if err := s.Trigger(context.Background(), "session_sweep"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if sw.calls != 1 || swept != 3 {
		t.Errorf("calls = %d, swept = %d; want 1 and 3", sw.calls, swept)
	}

	sw.err = errors.New("database is locked")
	if err := s.Trigger(context.Background(), "session_sweep"); err == nil {
		t.Error("Trigger() expected sweep error")
	}
	if swept != 3 {
		t.Errorf("failed sweep reported rows: swept = %d", swept)
	}

	if err := s.Trigger(context.Background(), "missing"); err == nil {
		t.Error("Trigger(missing) expected error")
	}
}

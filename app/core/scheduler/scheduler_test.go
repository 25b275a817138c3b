package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPeriodicRuns(t *testing.T) {
	s := New()
	var runs atomic.Int32
	err := s.Register(Job{
		Name:       "self_review",
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Name != "self_review" || snap[0].Runs < 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestJobErrorRecorded(t *testing.T) {
	s := New()
	s.Register(Job{
		Name:       "flaky",
		Interval:   time.Hour,
		RunOnStart: true,
		Run:        func(context.Context) error { return errors.New("broken") },
	})
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := s.Snapshot()
		if len(snap) == 1 && snap[0].Runs > 0 {
			if snap[0].LastError != "broken" {
				t.Fatalf("expected recorded error, got %q", snap[0].LastError)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop(time.Second)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	s := New()
	job := Job{Name: "dup", Interval: time.Hour, Run: func(context.Context) error { return nil }}
	if err := s.Register(job); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := s.Register(job); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := New()
	started := make(chan struct{})
	s.Register(Job{
		Name:       "long",
		Interval:   time.Hour,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	s.Start(context.Background())
	<-started
	if err := s.Stop(2 * time.Second); err != nil {
		t.Fatalf("stop did not cancel the job: %v", err)
	}
}

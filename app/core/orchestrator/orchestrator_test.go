package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surooh/app/core/knowledge"
	"surooh/app/core/orchestrator/db"
	"surooh/app/core/queue"
)

func newTestOrchestrator(t *testing.T, endpoint string, dispatchTimeout time.Duration) (*Orchestrator, *knowledge.Store) {
	t.Helper()
	database, err := db.NewSQLiteDB(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	jobs := queue.New(8)
	if err := jobs.Start(context.Background(), 2); err != nil {
		t.Fatalf("failed to start queue: %v", err)
	}
	t.Cleanup(func() { jobs.Stop(2 * time.Second) })

	know := knowledge.NewStore(200, 3)
	registry := NewRegistry([]WorkerAgent{
		{Name: "code_master", Category: "code", Endpoint: endpoint},
		{Name: "design_genius", Category: "design", Endpoint: endpoint},
		{Name: "fullstack_pro", Category: "development", Endpoint: endpoint},
	})
	return New(NewStore(database), registry, NewClient(), jobs, know, dispatchTimeout), know
}

func waitForTerminal(t *testing.T, o *Orchestrator, taskID string) Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		task, err := o.GetStatus(taskID)
		if err != nil {
			t.Fatalf("status poll failed: %v", err)
		}
		if task.Status == StatusCompleted || task.Status == StatusFailed {
			return task
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s never reached a terminal state, stuck at %s", taskID, task.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateTaskUnknownAgent(t *testing.T) {
	o, _ := newTestOrchestrator(t, "http://localhost:0", time.Second)
	if _, err := o.CreateTask(context.Background(), "ghost_agent", "do it", PriorityNormal); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestDispatchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "result": "function written"}`))
	}))
	defer srv.Close()

	o, know := newTestOrchestrator(t, srv.URL, 5*time.Second)
	taskID, err := o.CreateTask(context.Background(), "code_master", "اكتب دالة جمع", PriorityHigh)
	if err != nil {
		t.Fatalf("create task failed: %v", err)
	}

	task := waitForTerminal(t, o, taskID)
	if task.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", task.Status, task.Error)
	}
	if task.Result != "function written" {
		t.Fatalf("unexpected result: %q", task.Result)
	}
	if task.Attempts != 0 {
		t.Fatalf("successful dispatch must not count a failed attempt, got %d", task.Attempts)
	}
	if know.Stats().Patterns["agent_success:code_master"] != 1 {
		t.Fatal("expected success outcome reported to knowledge store")
	}
}

func TestDispatchTimeoutMarksFailed(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	o, know := newTestOrchestrator(t, srv.URL, 50*time.Millisecond)
	taskID, err := o.CreateTask(context.Background(), "design_genius", "صمم لوجو", PriorityNormal)
	if err != nil {
		t.Fatalf("create task failed: %v", err)
	}

	task := waitForTerminal(t, o, taskID)
	if task.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", task.Status)
	}
	if task.Attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", task.Attempts)
	}
	if task.Error == "" {
		t.Fatal("expected a non-empty error field")
	}
	if know.Stats().Patterns["agent_failure:design_genius"] != 1 {
		t.Fatal("expected failure outcome reported to knowledge store")
	}
}

func TestDispatchNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t, srv.URL, time.Second)
	taskID, _ := o.CreateTask(context.Background(), "fullstack_pro", "build site", PriorityUrgent)
	task := waitForTerminal(t, o, taskID)
	if task.Status != StatusFailed || task.Error == "" {
		t.Fatalf("expected failed with error, got %s %q", task.Status, task.Error)
	}
}

func TestGetStatusNotFound(t *testing.T) {
	o, _ := newTestOrchestrator(t, "http://localhost:0", time.Second)
	if _, err := o.GetStatus("missing-id"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTerminalStateNeverRegresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "result": "ok"}`))
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t, srv.URL, time.Second)
	taskID, _ := o.CreateTask(context.Background(), "code_master", "x", PriorityNormal)
	task := waitForTerminal(t, o, taskID)
	if task.Status != StatusCompleted {
		t.Fatalf("setup: expected completed, got %s", task.Status)
	}

	if err := o.store.MarkRunning(taskID); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
	if err := o.store.MarkFailed(taskID, "late failure"); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
	after, _ := o.GetStatus(taskID)
	if after.Status != StatusCompleted || after.Attempts != 0 {
		t.Fatalf("terminal record mutated: %+v", after)
	}
}

func TestInvalidPriorityDefaultsToNormal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "result": "ok"}`))
	}))
	defer srv.Close()

	o, _ := newTestOrchestrator(t, srv.URL, time.Second)
	taskID, _ := o.CreateTask(context.Background(), "code_master", "x", "extreme")
	task, _ := o.GetStatus(taskID)
	if task.Priority != PriorityNormal {
		t.Fatalf("expected priority normalized, got %s", task.Priority)
	}
}

package audit

import (
	"fmt"
	"testing"
	"time"

	"surooh/app/core/orchestrator/db"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	database, err := db.NewSQLiteDB(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewLog(database)
}

func TestAppendAndHistory(t *testing.T) {
	log := newTestLog(t)
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 3; i++ {
		err := log.Append(Exchange{
			UserID:    "abu_sham",
			SessionID: "s-1",
			TraceID:   fmt.Sprintf("t-%d", i),
			Request:   fmt.Sprintf("request %d", i),
			Response:  "ok",
			Status:    "ok",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	history, err := log.History("abu_sham", 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(history))
	}
	// newest first
	if history[0].Request != "request 2" || history[2].Request != "request 0" {
		t.Fatalf("unexpected ordering: %q .. %q", history[0].Request, history[2].Request)
	}
}

func TestHistoryFiltersByUser(t *testing.T) {
	log := newTestLog(t)
	log.Append(Exchange{UserID: "a", Request: "one", Response: "r", Status: "ok"})
	log.Append(Exchange{UserID: "b", Request: "two", Response: "r", Status: "ok"})

	history, err := log.History("a", 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 || history[0].UserID != "a" {
		t.Fatalf("expected only user a's exchanges, got %+v", history)
	}

	all, _ := log.History("", 10)
	if len(all) != 2 {
		t.Fatalf("expected 2 total exchanges, got %d", len(all))
	}
	if count, _ := log.Count(); count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestHistoryLimit(t *testing.T) {
	log := newTestLog(t)
	for i := 0; i < 5; i++ {
		log.Append(Exchange{UserID: "u", Request: fmt.Sprintf("r%d", i), Response: "x", Status: "ok"})
	}
	history, _ := log.History("u", 2)
	if len(history) != 2 {
		t.Fatalf("expected limit applied, got %d", len(history))
	}
}

package gate

import (
	"testing"
	"time"
)

func TestHundredFirstRequestRejected(t *testing.T) {
	g := New(100, time.Hour)
	for i := 0; i < 100; i++ {
		if err := g.Check("abu_sham"); err != nil {
			t.Fatalf("request %d unexpectedly rejected: %v", i+1, err)
		}
	}
	if err := g.Check("abu_sham"); err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited on request 101, got %v", err)
	}
}

func TestUsersCountedIndependently(t *testing.T) {
	g := New(2, time.Hour)
	g.Check("a")
	g.Check("a")
	if err := g.Check("a"); err != ErrRateLimited {
		t.Fatalf("expected user a limited, got %v", err)
	}
	if err := g.Check("b"); err != nil {
		t.Fatalf("user b should be unaffected, got %v", err)
	}
}

func TestWindowResetsCompletely(t *testing.T) {
	g := New(2, time.Minute)
	current := time.Unix(1000, 0)
	g.now = func() time.Time { return current }

	g.Check("u")
	g.Check("u")
	if err := g.Check("u"); err != ErrRateLimited {
		t.Fatalf("expected limit hit, got %v", err)
	}

	current = current.Add(time.Minute)
	// a fresh window admits a full burst immediately
	if err := g.Check("u"); err != nil {
		t.Fatalf("expected admission after window reset, got %v", err)
	}
	if got := g.Remaining("u"); got != 1 {
		t.Fatalf("expected 1 remaining, got %d", got)
	}
}

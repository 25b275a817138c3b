package gate

import (
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("gate: rate limit exceeded")

type window struct {
	start time.Time
	count int
}

// Gate is a fixed-window per-user admission counter. The window resets
// entirely once it expires, so a burst right after a reset is admitted;
// callers must not expect smoothing.
type Gate struct {
	mu      sync.Mutex
	windows map[string]*window

	limit  int
	span   time.Duration
	now    func() time.Time
}

func New(limit int, span time.Duration) *Gate {
	if limit <= 0 {
		limit = 100
	}
	if span <= 0 {
		span = time.Hour
	}
	return &Gate{
		windows: make(map[string]*window),
		limit:   limit,
		span:    span,
		now:     time.Now,
	}
}

// Check admits or rejects one request from the user. Counting includes the
// rejected calls, matching a hard per-window quota.
func (g *Gate) Check(userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	w, ok := g.windows[userID]
	if !ok || now.Sub(w.start) >= g.span {
		g.windows[userID] = &window{start: now, count: 1}
		return nil
	}

	w.count++
	if w.count > g.limit {
		return ErrRateLimited
	}
	return nil
}

// Remaining reports how many requests the user can still make in the
// current window.
func (g *Gate) Remaining(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[userID]
	if !ok || g.now().Sub(w.start) >= g.span {
		return g.limit
	}
	if w.count >= g.limit {
		return 0
	}
	return g.limit - w.count
}

package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nagarajan13172/qpgen/internal/review"
)

// viewParam carries the review session token of an open paper view. Each
// view (browser tab) gets its own token, so evaluation mode and a loaded
// answer key belong to that view only.
const viewParam = "v"

type viewKey struct {
	token   string
	paperID string
}

type viewEntry struct {
	rs       *review.Session
	lastUsed time.Time
}

// sessions keeps the review session of every open paper view. A view that
// is not requested for idle is considered left and its session is closed.
type sessions struct {
	src review.Source
	// wait bounds how long a request waits for in-flight fetches.
	wait time.Duration
	idle time.Duration
	now  func() time.Time

	mu     sync.Mutex
	byView map[viewKey]*viewEntry
}

func newSessions(src review.Source, wait, idle time.Duration) *sessions {
	return &sessions{
		src:    src,
		wait:   wait,
		idle:   idle,
		now:    time.Now,
		byView: make(map[viewKey]*viewEntry),
	}
}

// newToken returns a fresh view token.
func newToken() string {
	return uuid.NewString()
}

// validToken reports whether token could have come from newToken.
func validToken(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}

// get returns the session of the view token on paperID, creating and
// starting it if needed. Fetches run on a background context so they
// outlive the request.
func (s *sessions) get(token, paperID string) *review.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)

	k := viewKey{token: token, paperID: paperID}
	if e, ok := s.byView[k]; ok {
		e.lastUsed = now
		return e.rs
	}
	rs := review.New(s.src, paperID, review.WithLogger(slog.Default().With("view", token)))
	rs.Start(context.Background())
	s.byView[k] = &viewEntry{rs: rs, lastUsed: now}
	return rs
}

// evictLocked closes sessions of views left idle. s.mu must be held.
func (s *sessions) evictLocked(now time.Time) {
	for k, e := range s.byView {
		if now.Sub(e.lastUsed) > s.idle {
			slog.Debug("closing idle review session", "paper_id", k.paperID, "view", k.token)
			e.rs.Close()
			delete(s.byView, k)
		}
	}
}

// drop closes and forgets the session of one view.
func (s *sessions) drop(token, paperID string) {
	k := viewKey{token: token, paperID: paperID}
	s.mu.Lock()
	e, ok := s.byView[k]
	delete(s.byView, k)
	s.mu.Unlock()
	if ok {
		e.rs.Close()
	}
}

// dropPaper closes every view's session on paperID.
func (s *sessions) dropPaper(paperID string) {
	var closing []*review.Session
	s.mu.Lock()
	for k, e := range s.byView {
		if k.paperID == paperID {
			closing = append(closing, e.rs)
			delete(s.byView, k)
		}
	}
	s.mu.Unlock()
	for _, rs := range closing {
		rs.Close()
	}
}

// len returns the number of open sessions.
func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byView)
}

// settle waits for rs's in-flight fetches, giving up when ctx ends or the
// wait bound passes. It reports whether the session settled.
func (s *sessions) settle(ctx context.Context, rs *review.Session) bool {
	timer := time.NewTimer(s.wait)
	defer timer.Stop()
	select {
	case <-rs.Idle():
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

func (s *sessions) closeAll() {
	s.mu.Lock()
	all := s.byView
	s.byView = make(map[viewKey]*viewEntry)
	s.mu.Unlock()
	for _, e := range all {
		e.rs.Close()
	}
}

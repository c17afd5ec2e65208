// Package review drives the lifecycle of viewing one question paper: fetching
// and composing it, and lazily loading its answer key for evaluation mode.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Nagarajan13172/qpgen/internal/answers"
	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/model"
)

// ErrNotReady is returned by Print while the paper is not composed.
var ErrNotReady = errors.New("question paper is not loaded yet")

// State is the paper lifecycle state.
type State int

const (
	Idle State = iota
	LoadingPaper
	PaperLoaded
	PaperError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingPaper:
		return "loading_paper"
	case PaperLoaded:
		return "paper_loaded"
	case PaperError:
		return "paper_error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// KeyState is the answer key sub-state, meaningful once the paper is loaded.
type KeyState int

const (
	KeyNotFetched KeyState = iota
	LoadingKey
	KeyLoaded
	KeyError
)

func (k KeyState) String() string {
	switch k {
	case KeyNotFetched:
		return "key_not_fetched"
	case LoadingKey:
		return "loading_key"
	case KeyLoaded:
		return "key_loaded"
	case KeyError:
		return "key_error"
	}
	return fmt.Sprintf("key_state(%d)", int(k))
}

// Source fetches papers and answer keys from the backend.
type Source interface {
	GetPaper(ctx context.Context, id string) (*model.Paper, error)
	GetAnswerKey(ctx context.Context, paperID string) (*model.AnswerKey, error)
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	PaperID    string
	State      State
	KeyState   KeyState
	Paper      *model.Paper
	Sections   []compose.Section
	Evaluation bool
	// Err is the banner error; nil once dismissed.
	Err error
}

// Loading reports whether any fetch is in flight.
func (s Snapshot) Loading() bool {
	return s.State == LoadingPaper || s.KeyState == LoadingKey
}

// Option configures a Session.
type Option func(*Session)

// WithOnChange registers a callback invoked after every state transition.
// It runs without the session lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is the review controller for one paper.
type Session struct {
	src     Source
	paperID string
	log     *slog.Logger

	onChange func(Snapshot)

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	state      State
	keyState   KeyState
	paper      *model.Paper
	sections   []compose.Section
	index      *answers.Index
	err        error
	evaluation bool

	// inflight counts running fetches; idle is closed when it drops to zero.
	inflight int
	idle     chan struct{}
}

// New creates an idle session for paperID.
func New(src Source, paperID string, opts ...Option) *Session {
	s := &Session{
		src:     src,
		paperID: paperID,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("paper_id", paperID)
	return s
}

// Start begins fetching the paper. It has no effect unless the session is idle.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.state != Idle {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.state = LoadingPaper
	s.err = nil
	fetchCtx := s.ctx
	s.beginFetchLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	go s.fetchPaper(fetchCtx)
}

// beginFetchLocked registers a fetch with Wait and Idle. s.mu must be held.
func (s *Session) beginFetchLocked() {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Session) endFetch() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

func (s *Session) fetchPaper(ctx context.Context) {
	defer s.endFetch()

	paper, err := s.src.GetPaper(ctx, s.paperID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("discarding paper fetch result for closed session")
		return
	}
	if err != nil {
		s.state = PaperError
		s.err = err
		s.log.Error("paper fetch failed", "error", err)
	} else {
		s.paper = paper
		s.sections = compose.Compose(paper.Questions)
		s.state = PaperLoaded
		s.log.Debug("paper composed", "sections", len(s.sections), "questions", len(paper.Questions))
	}
	startKey := s.state == PaperLoaded && s.evaluation && s.keyState == KeyNotFetched
	if startKey {
		s.beginKeyFetchLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetEvaluationMode turns the answer overlay on or off. The first time it is
// turned on after the paper has loaded, the answer key is fetched.
func (s *Session) SetEvaluationMode(on bool) {
	s.mu.Lock()
	if s.closed || s.evaluation == on {
		s.mu.Unlock()
		return
	}
	s.evaluation = on
	if on && s.state == PaperLoaded && s.keyState == KeyNotFetched {
		s.beginKeyFetchLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// ToggleEvaluationMode flips evaluation mode and returns the new value.
func (s *Session) ToggleEvaluationMode() bool {
	s.mu.Lock()
	on := !s.evaluation
	s.mu.Unlock()
	s.SetEvaluationMode(on)
	return on
}

// beginKeyFetchLocked moves to LoadingKey and starts the fetch. s.mu must be held.
func (s *Session) beginKeyFetchLocked() {
	s.keyState = LoadingKey
	ctx := s.ctx
	s.beginFetchLocked()
	go s.fetchKey(ctx)
}

func (s *Session) fetchKey(ctx context.Context) {
	defer s.endFetch()

	key, err := s.src.GetAnswerKey(ctx, s.paperID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("discarding answer key result for closed session")
		return
	}
	if err != nil {
		// The paper stays usable; the overlay just shows no answers.
		s.keyState = KeyError
		s.log.Warn("answer key fetch failed", "error", err)
	} else {
		s.index = answers.Bind(s.sections, key)
		s.keyState = KeyLoaded
		s.log.Debug("answer key bound", "entries", s.index.Len(), "warnings", len(s.index.Warnings()))
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Lookup returns the answer for questionID while evaluation mode is on and
// the key has loaded.
func (s *Session) Lookup(questionID string) (model.AnswerKeyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.evaluation {
		return model.AnswerKeyEntry{}, false
	}
	return s.index.Lookup(questionID)
}

// Warnings returns data-integrity warnings from binding the answer key.
func (s *Session) Warnings() []answers.DataIntegrityWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Warnings()
}

// Sections returns the composed sections, or nil before the paper loads.
func (s *Session) Sections() []compose.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		PaperID:    s.paperID,
		State:      s.state,
		KeyState:   s.keyState,
		Paper:      s.paper,
		Sections:   s.sections,
		Evaluation: s.evaluation,
		Err:        s.err,
	}
}

// DismissError hides the banner error. The session stays in its error state.
func (s *Session) DismissError() {
	s.mu.Lock()
	if s.err == nil {
		s.mu.Unlock()
		return
	}
	s.err = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Printer renders a session view to some output.
type Printer interface {
	Print(v View) error
}

// View is what a printer receives: the composed paper and, in evaluation
// mode, a way to look up answers.
type View struct {
	Paper      *model.Paper
	Sections   []compose.Section
	Evaluation bool
	Lookup     func(questionID string) (model.AnswerKeyEntry, bool)
}

// View returns the current view, or ErrNotReady before the paper is loaded.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != PaperLoaded {
		return View{}, ErrNotReady
	}
	v := View{
		Paper:      s.paper,
		Sections:   s.sections,
		Evaluation: s.evaluation,
		Lookup:     func(string) (model.AnswerKeyEntry, bool) { return model.AnswerKeyEntry{}, false },
	}
	if s.evaluation {
		ix := s.index
		v.Lookup = ix.Lookup
	}
	return v, nil
}

// Print hands the current view to p. It never changes session state.
func (s *Session) Print(p Printer) error {
	v, err := s.View()
	if err != nil {
		return err
	}
	return p.Print(v)
}

// Wait blocks until all in-flight fetches have settled.
func (s *Session) Wait() {
	<-s.Idle()
}

// Idle returns a channel that is closed once no fetch is in flight. A fetch
// started later gets a new channel, so callers may wait on it concurrently
// with SetEvaluationMode.
func (s *Session) Idle() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == 0 {
		return closedChan
	}
	return s.idle
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Close tears the session down. Results of fetches still in flight are
// discarded when they arrive.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

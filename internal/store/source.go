package store

import (
	"context"
	"log/slog"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

// Fetcher is the read side of the backend used by a review session.
type Fetcher interface {
	GetPaper(ctx context.Context, id string) (*model.Paper, error)
	GetAnswerKey(ctx context.Context, paperID string) (*model.AnswerKey, error)
}

// Recorder passes fetches through to a live Fetcher and snapshots every
// successful result. Snapshot failures are logged and never fail the fetch.
type Recorder struct {
	src Fetcher
	st  *Store
}

// NewRecorder wraps src.
func NewRecorder(src Fetcher, st *Store) *Recorder {
	return &Recorder{src: src, st: st}
}

func (r *Recorder) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	p, err := r.src.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.st.SavePaper(p); err != nil {
		slog.Warn("snapshot paper failed", "paper_id", id, "error", err)
	}
	return p, nil
}

func (r *Recorder) GetAnswerKey(ctx context.Context, paperID string) (*model.AnswerKey, error) {
	k, err := r.src.GetAnswerKey(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if err := r.st.SaveAnswerKey(paperID, k); err != nil {
		slog.Warn("snapshot answer key failed", "paper_id", paperID, "error", err)
	}
	return k, nil
}

// Offline serves papers and answer keys from local snapshots only.
type Offline struct {
	st *Store
}

// NewOffline creates a Fetcher over st.
func NewOffline(st *Store) *Offline {
	return &Offline{st: st}
}

func (o *Offline) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.st.GetPaper(id)
}

func (o *Offline) GetAnswerKey(ctx context.Context, paperID string) (*model.AnswerKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.st.GetAnswerKey(paperID)
}

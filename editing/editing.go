// Package editing buffers local edits to a thread's messages and commits
// them to the backend as one batch.
package editing

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/logging"
)

// StateUpdater writes messages into a thread's state.
type StateUpdater interface {
	UpdateThreadState(ctx context.Context, threadID string, values []domain.Message) error
}

// CommitFunc posts all pending edits.
type CommitFunc func(ctx context.Context) error

type pendingEdit struct {
	msg     domain.Message
	version uint64
}

// Editor holds the pending edits of one thread.
type Editor struct {
	threadID  string
	updater   StateUpdater
	onSuccess func()
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]pendingEdit
	order   []string
	version uint64
}

// NewEditor creates an editor bound to threadID, which may be empty.
// onSuccess, when non-nil, runs after every successful commit.
func NewEditor(threadID string, updater StateUpdater, onSuccess func(), logger *zap.Logger) *Editor {
	return &Editor{
		threadID:  threadID,
		updater:   updater,
		onSuccess: onSuccess,
		logger:    logging.OrNop(logger),
		pending:   make(map[string]pendingEdit),
	}
}

// Record stores msg as the pending edit for its id, replacing any earlier
// edit of the same message.
func (e *Editor) Record(msg domain.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.version++
	if _, ok := e.pending[msg.ID]; !ok {
		e.order = append(e.order, msg.ID)
	}
	e.pending[msg.ID] = pendingEdit{msg: msg, version: e.version}
}

// Abandon drops the pending edits of the given message ids, or every
// pending edit when called without ids.
func (e *Editor) Abandon(ids ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ids) == 0 {
		e.pending = make(map[string]pendingEdit)
		e.order = nil
		return
	}
	for _, id := range ids {
		delete(e.pending, id)
	}
	e.compact()
}

// Pending returns a copy of the pending edits keyed by message id.
func (e *Editor) Pending() map[string]domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]domain.Message, len(e.pending))
	for id, p := range e.pending {
		out[id] = p.msg
	}
	return out
}

// Commit returns the function that commits pending edits, or nil when the
// editor is not bound to a thread.
func (e *Editor) Commit() CommitFunc {
	if e.threadID == "" {
		return nil
	}
	return e.commit
}

func (e *Editor) commit(ctx context.Context) error {
	e.mu.Lock()
	values := make([]domain.Message, 0, len(e.order))
	sent := make(map[string]uint64, len(e.order))
	for _, id := range e.order {
		p := e.pending[id]
		values = append(values, p.msg)
		sent[id] = p.version
	}
	e.mu.Unlock()

	if err := e.updater.UpdateThreadState(ctx, e.threadID, values); err != nil {
		e.logger.Error("failed to commit message edits",
			zap.String("thread_id", e.threadID),
			zap.Int("edits", len(values)),
			zap.Error(err))
		return err
	}

	e.mu.Lock()
	for id, version := range sent {
		// Edits recorded while the request was in flight stay pending.
		if p, ok := e.pending[id]; ok && p.version == version {
			delete(e.pending, id)
		}
	}
	e.compact()
	e.mu.Unlock()

	e.logger.Info("committed message edits", zap.String("thread_id", e.threadID), zap.Int("edits", len(values)))
	if e.onSuccess != nil {
		e.onSuccess()
	}
	return nil
}

// compact drops ids from order that are no longer pending. Callers hold mu.
func (e *Editor) compact() {
	kept := e.order[:0]
	for _, id := range e.order {
		if _, ok := e.pending[id]; ok {
			kept = append(kept, id)
		}
	}
	e.order = kept
}

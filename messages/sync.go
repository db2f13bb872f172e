package messages

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/logging"
)

// StateFetcher fetches a thread's persisted state.
type StateFetcher interface {
	GetThreadState(ctx context.Context, threadID string) (*domain.ThreadState, error)
}

// Snapshotter persists the last known messages of a thread.
type Snapshotter interface {
	SaveMessages(ctx context.Context, threadID string, msgs []domain.Message) error
}

// Sync keeps the messages of the current thread in sync with the backend
// and with the live stream driving it.
//
// Each fetch carries the generation that was current when it was issued; a
// response is applied only while that generation is still current, so a
// late answer for a previous thread never overwrites the current one.
type Sync struct {
	fetcher    StateFetcher
	stopStream func(clear bool)
	snapshot   Snapshotter
	logger     *zap.Logger

	mu         sync.Mutex
	threadID   string
	gen        uint64
	persisted  []domain.Message
	next       []string
	stream     *domain.StreamState
	prevStatus domain.StreamStatus
}

// Option configures a Sync.
type Option func(*Sync)

// WithStopStream sets the callback used to reset the stream driver once a
// finished run has been persisted.
func WithStopStream(fn func(clear bool)) Option {
	return func(s *Sync) {
		s.stopStream = fn
	}
}

// WithSnapshot persists applied messages.
func WithSnapshot(snap Snapshotter) Option {
	return func(s *Sync) {
		s.snapshot = snap
	}
}

// NewSync creates a synchronizer with no thread bound.
func NewSync(fetcher StateFetcher, logger *zap.Logger, opts ...Option) *Sync {
	s := &Sync{fetcher: fetcher, logger: logging.OrNop(logger), next: []string{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetThread binds a new thread. Current messages are cleared before the new
// state is fetched.
func (s *Sync) SetThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	s.threadID = threadID
	s.gen++
	s.persisted = nil
	s.next = []string{}
	s.mu.Unlock()

	return s.Refresh(ctx)
}

// ThreadID returns the bound thread id.
func (s *Sync) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Refresh fetches the persisted state of the bound thread. It is a no-op
// when no thread is bound.
func (s *Sync) Refresh(ctx context.Context) error {
	s.mu.Lock()
	threadID, gen := s.threadID, s.gen
	s.mu.Unlock()

	_, err := s.fetch(ctx, threadID, gen)
	return err
}

// fetch loads the state of threadID and applies it if gen is still current.
func (s *Sync) fetch(ctx context.Context, threadID string, gen uint64) (bool, error) {
	if threadID == "" {
		return false, nil
	}

	state, err := s.fetcher.GetThreadState(ctx, threadID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping stale thread state", zap.String("thread_id", threadID))
		return false, nil
	}
	s.persisted = state.Messages
	s.next = state.Next
	msgs := s.persisted
	s.mu.Unlock()

	if s.snapshot != nil {
		if err := s.snapshot.SaveMessages(ctx, threadID, msgs); err != nil {
			s.logger.Warn("failed to cache messages", zap.String("thread_id", threadID), zap.Error(err))
		}
	}
	return true, nil
}

// ObserveStream records the latest stream state. When the stream leaves the
// in-flight status, the persisted state is refetched and the stream driver
// is told to clear itself.
func (s *Sync) ObserveStream(ctx context.Context, state *domain.StreamState) error {
	var status domain.StreamStatus
	if state != nil {
		status = state.Status
	}

	s.mu.Lock()
	prev := s.prevStatus
	s.prevStatus = status
	s.stream = state
	finished := prev == domain.StreamStatusInflight && status != domain.StreamStatusInflight
	if finished {
		s.next = []string{}
	}
	threadID, gen := s.threadID, s.gen
	s.mu.Unlock()

	if !finished {
		return nil
	}

	if _, err := s.fetch(ctx, threadID, gen); err != nil {
		return err
	}

	s.mu.Lock()
	s.stream = nil
	s.prevStatus = ""
	s.mu.Unlock()
	if s.stopStream != nil {
		s.stopStream(true)
	}
	return nil
}

// Messages returns the persisted messages overlaid with the live stream's
// messages, or nil before the bound thread's state has been loaded and no
// stream is running.
func (s *Sync) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var live []domain.Message
	if s.stream != nil {
		live = s.stream.Messages
	}
	return Merge(s.persisted, live)
}

// Next returns the continuation tokens of the last applied state.
func (s *Sync) Next() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.next...)
}

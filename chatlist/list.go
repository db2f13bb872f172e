package chatlist

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/logging"
)

// ThreadService is the part of the backend client the list needs.
type ThreadService interface {
	ListThreads(ctx context.Context) ([]domain.Chat, error)
	CreateThread(ctx context.Context, req domain.CreateThreadRequest) (*domain.Chat, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// Snapshotter persists the last known chat list.
type Snapshotter interface {
	SaveChats(ctx context.Context, chats []domain.Chat) error
	ListChats(ctx context.Context) ([]domain.Chat, error)
	// DeleteThread forgets everything cached for a deleted thread.
	DeleteThread(ctx context.Context, threadID string) error
}

// List mirrors the backend's thread list.
type List struct {
	svc      ThreadService
	snapshot Snapshotter
	logger   *zap.Logger

	mu     sync.Mutex
	index  *Index
	loaded bool
}

// Option configures a List.
type Option func(*List)

// WithSnapshot persists the list after every change.
func WithSnapshot(s Snapshotter) Option {
	return func(l *List) {
		l.snapshot = s
	}
}

// New creates an empty list backed by svc.
func New(svc ThreadService, logger *zap.Logger, opts ...Option) *List {
	l := &List{
		svc:    svc,
		logger: logging.OrNop(logger),
		index:  NewIndex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches all threads and replaces the local list.
func (l *List) Load(ctx context.Context) error {
	chats, err := l.svc.ListThreads(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.index.Replace(chats)
	l.loaded = true
	current := l.index.Chats()
	l.mu.Unlock()

	l.logger.Debug("loaded threads", zap.Int("count", len(current)))
	l.save(ctx, current)
	return nil
}

// LoadCached replaces the local list with the last saved snapshot.
func (l *List) LoadCached(ctx context.Context) error {
	if l.snapshot == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	chats, err := l.snapshot.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cached threads: %w", err)
	}

	l.mu.Lock()
	l.index.Replace(chats)
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// Create creates a thread and upserts it into the list.
func (l *List) Create(ctx context.Context, name, assistantID string) (*domain.Chat, error) {
	chat, err := l.svc.CreateThread(ctx, domain.CreateThreadRequest{AssistantID: assistantID, Name: name})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.index.Upsert(*chat)
	l.loaded = true
	current := l.index.Chats()
	l.mu.Unlock()

	l.logger.Info("created thread", zap.String("thread_id", chat.ThreadID), zap.String("assistant_id", assistantID))
	l.save(ctx, current)
	return chat, nil
}

// Delete deletes a thread and removes it locally without refetching.
func (l *List) Delete(ctx context.Context, threadID string) error {
	if err := l.svc.DeleteThread(ctx, threadID); err != nil {
		return err
	}

	l.mu.Lock()
	l.index.Remove(threadID)
	l.loaded = true
	current := l.index.Chats()
	l.mu.Unlock()

	l.logger.Info("deleted thread", zap.String("thread_id", threadID))
	l.forget(ctx, threadID)
	l.save(ctx, current)
	return nil
}

// Chats returns the ordered chats, or nil before anything was loaded.
func (l *List) Chats() []domain.Chat {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return nil
	}
	return l.index.Chats()
}

// Get returns the chat with the given thread id.
func (l *List) Get(threadID string) (domain.Chat, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.Get(threadID)
}

func (l *List) save(ctx context.Context, chats []domain.Chat) {
	if l.snapshot == nil {
		return
	}
	if err := l.snapshot.SaveChats(ctx, chats); err != nil {
		l.logger.Warn("failed to cache threads", zap.Error(err))
	}
}

func (l *List) forget(ctx context.Context, threadID string) {
	if l.snapshot == nil {
		return
	}
	if err := l.snapshot.DeleteThread(ctx, threadID); err != nil {
		l.logger.Warn("failed to drop cached thread", zap.String("thread_id", threadID), zap.Error(err))
	}
}

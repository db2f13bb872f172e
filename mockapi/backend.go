// Package mockapi implements an in-memory stand-in for the OpenGPTs backend.
// It serves the same HTTP and SSE endpoints the client uses and keeps all
// state per user in memory.
package mockapi

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gptchat/domain"
)

// ErrNotFound is returned for threads and assistants the user cannot see.
var ErrNotFound = errors.New("not found")

type thread struct {
	owner    string
	chat     domain.Chat
	messages []domain.Message
	written  bool
}

// Backend holds assistants, threads and thread states.
type Backend struct {
	mu         sync.RWMutex
	assistants map[string]domain.Assistant
	owners     map[string]string
	threads    map[string]*thread
	now        func() time.Time
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		assistants: make(map[string]domain.Assistant),
		owners:     make(map[string]string),
		threads:    make(map[string]*thread),
		now:        time.Now,
	}
}

// AddAssistant stores an assistant owned by owner. Public assistants are
// visible to every user. An empty id is replaced by a generated one.
func (b *Backend) AddAssistant(owner string, a domain.Assistant) domain.Assistant {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a.AssistantID == "" {
		a.AssistantID = uuid.NewString()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = b.now().UTC()
	}
	b.assistants[a.AssistantID] = a
	b.owners[a.AssistantID] = owner
	return a
}

// Assistant returns an assistant visible to userID.
func (b *Backend) Assistant(userID, assistantID string) (domain.Assistant, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, ok := b.assistants[assistantID]
	if !ok || (!a.Public && b.owners[assistantID] != userID) {
		return domain.Assistant{}, ErrNotFound
	}
	return a, nil
}

// Threads lists the threads of userID, most recently updated first.
func (b *Backend) Threads(userID string) []domain.Chat {
	b.mu.RLock()
	defer b.mu.RUnlock()

	chats := []domain.Chat{}
	for _, t := range b.threads {
		if t.owner == userID {
			chats = append(chats, t.chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats
}

// CreateThread creates a thread for userID.
func (b *Backend) CreateThread(userID string, req domain.CreateThreadRequest) (domain.Chat, error) {
	if _, err := b.Assistant(userID, req.AssistantID); err != nil {
		return domain.Chat{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	chat := domain.Chat{
		ThreadID:    uuid.NewString(),
		AssistantID: req.AssistantID,
		Name:        req.Name,
		UpdatedAt:   b.now().UTC(),
	}
	b.threads[chat.ThreadID] = &thread{owner: userID, chat: chat}
	return chat, nil
}

// Thread returns a thread of userID.
func (b *Backend) Thread(userID, threadID string) (domain.Chat, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.lookup(userID, threadID)
	if err != nil {
		return domain.Chat{}, err
	}
	return t.chat, nil
}

// DeleteThread removes a thread of userID.
func (b *Backend) DeleteThread(userID, threadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(userID, threadID); err != nil {
		return err
	}
	delete(b.threads, threadID)
	return nil
}

// State returns the messages of a thread. written is false until the state
// was first updated, matching a backend that has no checkpoint yet.
func (b *Backend) State(userID, threadID string) (msgs []domain.Message, written bool, err error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, err := b.lookup(userID, threadID)
	if err != nil {
		return nil, false, err
	}
	return append([]domain.Message{}, t.messages...), t.written, nil
}

// UpdateState applies msgs to a thread: a message whose id already exists
// replaces it in place, others are appended. Messages without an id get one.
func (b *Backend) UpdateState(userID, threadID string, msgs []domain.Message) ([]domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.lookup(userID, threadID)
	if err != nil {
		return nil, err
	}

	applied := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		replaced := false
		for i := range t.messages {
			if t.messages[i].ID == m.ID {
				t.messages[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			t.messages = append(t.messages, m)
		}
		applied = append(applied, m)
	}
	t.written = true
	t.chat.UpdatedAt = b.now().UTC()
	return applied, nil
}

func (b *Backend) lookup(userID, threadID string) (*thread, error) {
	t, ok := b.threads[threadID]
	if !ok || t.owner != userID {
		return nil, ErrNotFound
	}
	return t, nil
}

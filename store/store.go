// Package store caches the last known threads and messages locally so they
// can be shown without reaching the backend.
package store

import (
	"context"

	"github.com/xiaot623/gptchat/domain"
)

// Store defines the interface of the local cache.
type Store interface {
	// Chat operations
	SaveChats(ctx context.Context, userID string, chats []domain.Chat) error
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)

	// Message operations
	SaveMessages(ctx context.Context, userID, threadID string, msgs []domain.Message) error
	GetMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error)

	// DeleteThread drops the cached messages of a thread.
	DeleteThread(ctx context.Context, userID, threadID string) error

	// Lifecycle
	Close() error
}

// UserCache scopes a Store to one user. It satisfies the snapshot
// interfaces of the chatlist and messages packages.
type UserCache struct {
	store  Store
	userID string
}

// ForUser returns the cache of userID.
func ForUser(s Store, userID string) *UserCache {
	return &UserCache{store: s, userID: userID}
}

// SaveChats replaces the cached chat list.
func (c *UserCache) SaveChats(ctx context.Context, chats []domain.Chat) error {
	return c.store.SaveChats(ctx, c.userID, chats)
}

// ListChats returns the cached chat list.
func (c *UserCache) ListChats(ctx context.Context) ([]domain.Chat, error) {
	return c.store.ListChats(ctx, c.userID)
}

// SaveMessages replaces the cached messages of a thread.
func (c *UserCache) SaveMessages(ctx context.Context, threadID string, msgs []domain.Message) error {
	return c.store.SaveMessages(ctx, c.userID, threadID, msgs)
}

// GetMessages returns the cached messages of a thread.
func (c *UserCache) GetMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	return c.store.GetMessages(ctx, c.userID, threadID)
}

// DeleteThread drops the cached messages of a thread.
func (c *UserCache) DeleteThread(ctx context.Context, threadID string) error {
	return c.store.DeleteThread(ctx, c.userID, threadID)
}

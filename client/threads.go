package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
)

// GetThread calls GET /threads/:thread_id. It returns nil when the thread
// cannot be fetched for any reason; the failure is logged.
func (c *Client) GetThread(ctx context.Context, threadID string) *domain.Chat {
	var chat domain.Chat
	if err := c.doJSON(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, &chat); err != nil {
		c.logger.Warn("failed to fetch thread", zap.String("thread_id", threadID), zap.Error(err))
		return nil
	}
	return &chat
}

// ListThreads calls GET /threads/ and returns the threads of the session user.
func (c *Client) ListThreads(ctx context.Context) ([]domain.Chat, error) {
	var chats []domain.Chat
	if err := c.doJSON(ctx, http.MethodGet, "/threads/", nil, &chats); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return chats, nil
}

// CreateThread calls POST /threads.
func (c *Client) CreateThread(ctx context.Context, req domain.CreateThreadRequest) (*domain.Chat, error) {
	var chat domain.Chat
	if err := c.doJSON(ctx, http.MethodPost, "/threads", req, &chat); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return &chat, nil
}

// DeleteThread calls DELETE /threads/:thread_id.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadID), nil); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

// GetThreadState calls GET /threads/:thread_id/state and normalizes the
// response.
func (c *Client) GetThreadState(ctx context.Context, threadID string) (*domain.ThreadState, error) {
	body, err := c.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID)+"/state", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get state of thread %s: %w", threadID, err)
	}
	state, err := domain.DecodeThreadState(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state of thread %s: %w", threadID, err)
	}
	return state, nil
}

// UpdateThreadState calls POST /threads/:thread_id/state with the given
// messages as values.
func (c *Client) UpdateThreadState(ctx context.Context, threadID string, values []domain.Message) error {
	req := domain.UpdateStateRequest{Values: values}
	if req.Values == nil {
		req.Values = []domain.Message{}
	}
	if _, err := c.do(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/state", req); err != nil {
		return fmt.Errorf("failed to update state of thread %s: %w", threadID, err)
	}
	return nil
}

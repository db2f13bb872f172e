package client

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
)

// GetAssistant calls GET /assistants/:assistant_id. It returns nil when the
// assistant cannot be fetched for any reason; the failure is logged.
func (c *Client) GetAssistant(ctx context.Context, assistantID string) *domain.Assistant {
	var assistant domain.Assistant
	if err := c.doJSON(ctx, http.MethodGet, "/assistants/"+url.PathEscape(assistantID), nil, &assistant); err != nil {
		c.logger.Warn("failed to fetch assistant", zap.String("assistant_id", assistantID), zap.Error(err))
		return nil
	}
	return &assistant
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/xiaot623/gptchat/domain"
)

// GetConfigSchema calls GET /runs/config_schema and returns the raw schema.
func (c *Client) GetConfigSchema(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, "/runs/config_schema", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get config schema: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to get config schema: invalid JSON body")
	}
	return json.RawMessage(body), nil
}

// StreamRun calls POST /runs/stream and calls handler for every SSE event
// until the stream ends, the handler fails, or ctx is done.
func (c *Client) StreamRun(ctx context.Context, req domain.RunRequest, handler EventHandler) error {
	if req.Input == nil {
		req.Input = []domain.Message{}
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/runs/stream", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to start run stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to start run stream: %w", statusError(resp, body))
	}

	return parseSSE(resp.Body, handler)
}

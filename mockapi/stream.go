package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
)

// handleStreamRun appends the input to the thread, then streams a reply as
// SSE: one metadata event, a data event per chunk carrying the full message
// list so far, and a final end event. A responder failure becomes an error
// event.
func (s *Server) handleStreamRun(c echo.Context) error {
	ctx := c.Request().Context()
	user := userID(c)

	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid request body"))
	}
	if req.ThreadID == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail("thread_id is required"))
	}

	input, err := s.backend.UpdateState(user, req.ThreadID, req.Input)
	if err != nil {
		return s.notFound(c, "Thread not found", err)
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	runID := uuid.NewString()
	if err := s.sendSSEEvent(c, domain.StreamEventMetadata, domain.RunMetadata{RunID: runID}); err != nil {
		return err
	}

	text, err := s.responder(ctx, input)
	if err != nil {
		s.logger.Warn("responder failed", zap.String("run_id", runID), zap.Error(err))
		return s.sendSSEEvent(c, domain.StreamEventError, domain.StreamErrorData{
			StatusCode: http.StatusInternalServerError,
			Message:    err.Error(),
		})
	}

	reply := domain.Message{ID: "run-" + runID, Type: domain.MessageTypeAI, Content: ""}
	for _, chunk := range strings.SplitAfter(text, " ") {
		reply.Content += chunk
		msgs := append(append([]domain.Message{}, input...), reply)
		if err := s.sendSSEEvent(c, domain.StreamEventData, msgs); err != nil {
			return err
		}
		if s.chunkDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.chunkDelay):
			}
		}
	}

	if _, err := s.backend.UpdateState(user, req.ThreadID, []domain.Message{reply}); err != nil {
		s.logger.Warn("failed to persist reply", zap.String("run_id", runID), zap.Error(err))
	}
	return s.sendSSEEvent(c, domain.StreamEventEnd, nil)
}

// sendSSEEvent writes one event and flushes it.
func (s *Server) sendSSEEvent(c echo.Context, event string, payload interface{}) error {
	w := c.Response().Writer
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n", data); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

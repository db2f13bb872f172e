package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleGetAssistant(c echo.Context) error {
	a, err := s.backend.Assistant(userID(c), c.Param("assistant_id"))
	if err != nil {
		return s.notFound(c, "Assistant not found", err)
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) handleListThreads(c echo.Context) error {
	return c.JSON(http.StatusOK, s.backend.Threads(userID(c)))
}

func (s *Server) handleCreateThread(c echo.Context) error {
	var req domain.CreateThreadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid request body"))
	}
	if req.AssistantID == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail("assistant_id is required"))
	}

	chat, err := s.backend.CreateThread(userID(c), req)
	if err != nil {
		return s.notFound(c, "Assistant not found", err)
	}
	s.logger.Debug("thread created", zap.String("thread_id", chat.ThreadID), zap.String("user_id", userID(c)))
	return c.JSON(http.StatusOK, chat)
}

func (s *Server) handleGetThread(c echo.Context) error {
	chat, err := s.backend.Thread(userID(c), c.Param("thread_id"))
	if err != nil {
		return s.notFound(c, "Thread not found", err)
	}
	return c.JSON(http.StatusOK, chat)
}

func (s *Server) handleDeleteThread(c echo.Context) error {
	if err := s.backend.DeleteThread(userID(c), c.Param("thread_id")); err != nil {
		return s.notFound(c, "Thread not found", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{})
}

type stateResponse struct {
	Values json.RawMessage `json:"values"`
	Next   []string        `json:"next"`
}

func (s *Server) handleGetState(c echo.Context) error {
	msgs, written, err := s.backend.State(userID(c), c.Param("thread_id"))
	if err != nil {
		return s.notFound(c, "Thread not found", err)
	}

	resp := stateResponse{Values: json.RawMessage("null"), Next: []string{}}
	if written {
		values, err := json.Marshal(msgs)
		if err != nil {
			s.logger.Error("failed to encode thread state", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, detail("failed to encode state"))
		}
		resp.Values = values
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUpdateState(c echo.Context) error {
	var req domain.UpdateStateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid request body"))
	}

	if _, err := s.backend.UpdateState(userID(c), c.Param("thread_id"), req.Values); err != nil {
		return s.notFound(c, "Thread not found", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{})
}

func (s *Server) handleConfigSchema(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(ConfigSchema))
}

func (s *Server) notFound(c echo.Context, msg string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, detail(msg))
	}
	s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, detail("internal error"))
}

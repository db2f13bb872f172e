package mockapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/logging"
)

const userKey = "user_id"

// Responder produces the assistant reply for the input of a run.
type Responder func(ctx context.Context, input []domain.Message) (string, error)

// EchoResponder answers with the text of the last input message.
func EchoResponder(_ context.Context, input []domain.Message) (string, error) {
	if len(input) == 0 {
		return "Hello! How can I help?", nil
	}
	return "You said: " + input[len(input)-1].Content, nil
}

// Server is the HTTP front of a Backend.
type Server struct {
	echo       *echo.Echo
	backend    *Backend
	logger     *zap.Logger
	responder  Responder
	chunkDelay time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(logger)
	}
}

// WithResponder replaces the reply generator of streamed runs.
func WithResponder(r Responder) Option {
	return func(s *Server) {
		s.responder = r
	}
}

// WithChunkDelay sets the pause between streamed chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) {
		s.chunkDelay = d
	}
}

// WithRequestLog enables echo's request logging middleware.
func WithRequestLog() Option {
	return func(s *Server) {
		s.echo.Use(middleware.Logger())
	}
}

// NewServer creates a server for backend.
func NewServer(backend *Backend, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		backend:   backend,
		logger:    zap.NewNop(),
		responder: EchoResponder,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.GET("/health", s.handleHealth)

	api := e.Group("", middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			if key == "" {
				return false, nil
			}
			c.Set(userKey, key)
			return true, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, detail("Not authenticated"))
		},
	}))

	api.GET("/assistants/:assistant_id", s.handleGetAssistant)

	api.GET("/threads", s.handleListThreads)
	api.GET("/threads/", s.handleListThreads)
	api.POST("/threads", s.handleCreateThread)
	api.POST("/threads/", s.handleCreateThread)
	api.GET("/threads/:thread_id", s.handleGetThread)
	api.DELETE("/threads/:thread_id", s.handleDeleteThread)
	api.GET("/threads/:thread_id/state", s.handleGetState)
	api.POST("/threads/:thread_id/state", s.handleUpdateState)

	api.GET("/runs/config_schema", s.handleConfigSchema)
	api.POST("/runs/stream", s.handleStreamRun)
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}

// detail builds the FastAPI-style error body.
func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

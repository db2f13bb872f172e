// Package stream drives a single assistant run stream and owns its
// in-memory state until the run is persisted.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/logging"
	"github.com/xiaot623/gptchat/messages"
)

// ErrInflight is returned by Start while a run is still streaming.
var ErrInflight = errors.New("a run is already in flight")

// errSuperseded aborts the SSE read loop of a run that was stopped.
var errSuperseded = errors.New("run superseded")

// Runner opens a run stream.
type Runner interface {
	StreamRun(ctx context.Context, req domain.RunRequest, handler client.EventHandler) error
}

// Stream drives one run at a time.
//
// OnChange is called from the run goroutine for every state change the run
// produces, and by Stop(false) when it ends an in-flight run. Stop(true)
// never calls it, so the callback may call Stop(true).
type Stream struct {
	runner   Runner
	logger   *zap.Logger
	onChange func(*domain.StreamState)

	mu     sync.Mutex
	state  *domain.StreamState
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Stream.
type Option func(*Stream)

// WithOnChange registers a callback for state changes.
func WithOnChange(fn func(*domain.StreamState)) Option {
	return func(s *Stream) {
		s.onChange = fn
	}
}

// New creates an idle stream driver.
func New(runner Runner, logger *zap.Logger, opts ...Option) *Stream {
	s := &Stream{runner: runner, logger: logging.OrNop(logger)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins streaming a run in the background.
func (s *Stream) Start(ctx context.Context, req domain.RunRequest) error {
	s.mu.Lock()
	if s.state != nil && s.state.Status == domain.StreamStatusInflight {
		s.mu.Unlock()
		return ErrInflight
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.state = &domain.StreamState{Status: domain.StreamStatusInflight}
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.logger.Debug("starting run stream", zap.String("thread_id", req.ThreadID))
	s.notify(snapshot)

	go func() {
		defer close(done)
		defer cancel()
		err := s.runner.StreamRun(runCtx, req, func(event client.SSEEvent) error {
			return s.handle(gen, event)
		})
		s.finish(gen, err)
	}()
	return nil
}

// Stop cancels an in-flight run. With clear the state is discarded;
// otherwise an in-flight state is marked done.
func (s *Stream) Stop(clear bool) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	if clear {
		s.state = nil
		s.mu.Unlock()
		return
	}
	if s.state == nil || s.state.Status != domain.StreamStatusInflight {
		s.mu.Unlock()
		return
	}
	s.state.Status = domain.StreamStatusDone
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
}

// State returns a copy of the current state, or nil when cleared.
func (s *Stream) State() *domain.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Wait blocks until the most recently started run goroutine has exited.
func (s *Stream) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Stream) handle(gen uint64, event client.SSEEvent) error {
	s.mu.Lock()
	if gen != s.gen || s.state == nil {
		s.mu.Unlock()
		return errSuperseded
	}

	switch event.Event {
	case domain.StreamEventMetadata:
		meta, err := client.ParseMetadataEvent(event.Data)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.state.RunID = meta.RunID
	case domain.StreamEventData:
		msgs, err := client.ParseDataEvent(event.Data)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.state.Messages = messages.Merge(s.state.Messages, msgs)
	case domain.StreamEventError:
		errEvt, err := client.ParseErrorEvent(event.Data)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.state.Status = domain.StreamStatusError
		s.state.Err = fmt.Errorf("run failed with status %d: %s", errEvt.StatusCode, errEvt.Message)
	case domain.StreamEventEnd:
		if s.state.Status == domain.StreamStatusInflight {
			s.state.Status = domain.StreamStatusDone
		}
	default:
		s.mu.Unlock()
		s.logger.Debug("ignoring stream event", zap.String("event", event.Event))
		return nil
	}

	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.notify(snapshot)
	return nil
}

func (s *Stream) finish(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.state == nil {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	if s.state.Status != domain.StreamStatusInflight {
		s.mu.Unlock()
		return
	}

	if err != nil {
		s.state.Status = domain.StreamStatusError
		s.state.Err = err
		s.logger.Warn("run stream failed", zap.Error(err))
	} else {
		s.state.Status = domain.StreamStatusDone
	}
	snapshot := s.state.Clone()
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *Stream) notify(state *domain.StreamState) {
	if s.onChange != nil {
		s.onChange(state)
	}
}

package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/messages"
)

// scriptedRunner replays events, optionally waiting on gate before the rest.
type scriptedRunner struct {
	events []client.SSEEvent
	gateAt int
	gate   chan struct{}
	err    error
	req    domain.RunRequest
}

func (r *scriptedRunner) StreamRun(ctx context.Context, req domain.RunRequest, handler client.EventHandler) error {
	r.req = req
	for i, ev := range r.events {
		if r.gate != nil && i == r.gateAt {
			select {
			case <-r.gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
	return r.err
}

type recorder struct {
	mu     sync.Mutex
	states []*domain.StreamState
}

func (r *recorder) record(s *domain.StreamState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) statuses() []domain.StreamStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StreamStatus, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func TestStreamRunsToDone(t *testing.T) {
	runner := &scriptedRunner{events: []client.SSEEvent{
		{Event: "metadata", Data: `{"run_id":"r1"}`},
		{Event: "data", Data: `[{"id":"h1","type":"human","content":"hi"}]`},
		{Event: "data", Data: `[{"id":"ai1","type":"ai","content":"hel"}]`},
		{Event: "data", Data: `[{"id":"ai1","type":"ai","content":"hello"}]`},
		{Event: "end"},
	}}
	rec := &recorder{}
	s := New(runner, nil, WithOnChange(rec.record))

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	s.Wait()

	state := s.State()
	require.NotNil(t, state)
	assert.Equal(t, domain.StreamStatusDone, state.Status)
	assert.Equal(t, "r1", state.RunID)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hello", state.Messages[1].Content)
	assert.Equal(t, "t1", runner.req.ThreadID)

	statuses := rec.statuses()
	assert.Equal(t, domain.StreamStatusInflight, statuses[0])
	assert.Equal(t, domain.StreamStatusDone, statuses[len(statuses)-1])
}

func TestStreamErrorEvent(t *testing.T) {
	runner := &scriptedRunner{events: []client.SSEEvent{
		{Event: "error", Data: `{"status_code":500,"message":"Internal Server Error"}`},
		{Event: "end"},
	}}
	s := New(runner, nil)

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	s.Wait()

	state := s.State()
	assert.Equal(t, domain.StreamStatusError, state.Status)
	assert.ErrorContains(t, state.Err, "Internal Server Error")
}

func TestStreamTransportFailure(t *testing.T) {
	runner := &scriptedRunner{err: errors.New("connection reset")}
	s := New(runner, nil)

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	s.Wait()

	state := s.State()
	assert.Equal(t, domain.StreamStatusError, state.Status)
	assert.EqualError(t, state.Err, "connection reset")
}

func TestStreamEndsWithoutEndEvent(t *testing.T) {
	runner := &scriptedRunner{events: []client.SSEEvent{{Event: "data", Data: `[{"id":"1","content":"x"}]`}}}
	s := New(runner, nil)

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	s.Wait()
	assert.Equal(t, domain.StreamStatusDone, s.State().Status)
}

func TestStreamRejectsConcurrentStart(t *testing.T) {
	gate := make(chan struct{})
	runner := &scriptedRunner{events: []client.SSEEvent{{Event: "end"}}, gate: gate}
	s := New(runner, nil)

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	assert.ErrorIs(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}), ErrInflight)

	close(gate)
	s.Wait()
	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	s.Wait()
}

func TestStreamStopClear(t *testing.T) {
	gate := make(chan struct{})
	runner := &scriptedRunner{
		events: []client.SSEEvent{{Event: "data", Data: `[{"id":"1","content":"x"}]`}, {Event: "end"}},
		gate:   gate,
		gateAt: 1,
	}
	rec := &recorder{}
	s := New(runner, nil, WithOnChange(rec.record))

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	require.Eventually(t, func() bool { return len(rec.statuses()) == 2 }, time.Second, 5*time.Millisecond)

	s.Stop(true)
	s.Wait()
	assert.Nil(t, s.State())
	assert.Len(t, rec.statuses(), 2)
}

func TestStreamStopKeep(t *testing.T) {
	gate := make(chan struct{})
	runner := &scriptedRunner{
		events: []client.SSEEvent{{Event: "data", Data: `[{"id":"1","content":"x"}]`}, {Event: "end"}},
		gate:   gate,
		gateAt: 1,
	}
	rec := &recorder{}
	s := New(runner, nil, WithOnChange(rec.record))

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	require.Eventually(t, func() bool {
		st := s.State()
		return st != nil && len(st.Messages) == 1
	}, time.Second, 5*time.Millisecond)

	s.Stop(false)
	s.Wait()
	state := s.State()
	require.NotNil(t, state)
	assert.Equal(t, domain.StreamStatusDone, state.Status)
	assert.Len(t, state.Messages, 1)
	assert.Equal(t, []domain.StreamStatus{
		domain.StreamStatusInflight,
		domain.StreamStatusInflight,
		domain.StreamStatusDone,
	}, rec.statuses())

	// Stopping an already finished run reports nothing new.
	s.Stop(false)
	assert.Len(t, rec.statuses(), 3)
}

type countingFetcher struct {
	mu    sync.Mutex
	msgs  []domain.Message
	calls int
}

func (f *countingFetcher) GetThreadState(ctx context.Context, threadID string) (*domain.ThreadState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &domain.ThreadState{Shape: domain.ValuesShapeList, Messages: f.msgs, Next: []string{}}, nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStreamStopKeepRefreshesMessages(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	runner := &scriptedRunner{
		events: []client.SSEEvent{{Event: "data", Data: `[{"id":"live","content":"partial"}]`}, {Event: "end"}},
		gate:   gate,
		gateAt: 1,
	}
	fetcher := &countingFetcher{msgs: []domain.Message{{ID: "p1", Content: "persisted"}}}

	var s *Stream
	msgSync := messages.NewSync(fetcher, nil, messages.WithStopStream(func(clear bool) { s.Stop(clear) }))
	s = New(runner, nil, WithOnChange(func(st *domain.StreamState) {
		if err := msgSync.ObserveStream(ctx, st); err != nil {
			t.Errorf("observe stream: %v", err)
		}
	}))

	require.NoError(t, msgSync.SetThread(ctx, "t1"))
	require.NoError(t, s.Start(ctx, domain.RunRequest{ThreadID: "t1"}))
	require.Eventually(t, func() bool { return len(msgSync.Messages()) == 2 }, time.Second, 5*time.Millisecond)

	s.Stop(false)
	s.Wait()

	assert.Equal(t, 2, fetcher.callCount())
	assert.Nil(t, s.State())
	assert.Equal(t, []domain.Message{{ID: "p1", Content: "persisted"}}, msgSync.Messages())
}

func TestStreamCallbackMayStop(t *testing.T) {
	runner := &scriptedRunner{events: []client.SSEEvent{{Event: "end"}}}
	var s *Stream
	s = New(runner, nil, WithOnChange(func(st *domain.StreamState) {
		if st.Status == domain.StreamStatusDone {
			s.Stop(true)
		}
	}))

	require.NoError(t, s.Start(context.Background(), domain.RunRequest{ThreadID: "t1"}))
	s.Wait()
	assert.Nil(t, s.State())
}

package mockapi_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gptchat/client"
	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/mockapi"
	"github.com/xiaot623/gptchat/schema"
	"github.com/xiaot623/gptchat/tests/helpers"
)

func TestServer_RejectsMissingBearer(t *testing.T) {
	env := helpers.NewMockEnv(t)

	resp, err := http.Get(env.Server.URL + "/threads/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(env.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ThreadLifecycle(t *testing.T) {
	env := helpers.NewMockEnv(t)
	ctx := context.Background()
	c := env.Client("alice")

	threads, err := c.ListThreads(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)

	chat, err := c.CreateThread(ctx, domain.CreateThreadRequest{AssistantID: env.Assistant.AssistantID, Name: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ThreadID)
	assert.Equal(t, "first", chat.Name)

	got := c.GetThread(ctx, chat.ThreadID)
	require.NotNil(t, got)
	assert.Equal(t, chat.ThreadID, got.ThreadID)

	// Threads are private to their owner.
	bob := env.Client("bob")
	assert.Nil(t, bob.GetThread(ctx, chat.ThreadID))
	bobThreads, err := bob.ListThreads(ctx)
	require.NoError(t, err)
	assert.Empty(t, bobThreads)

	state, err := c.GetThreadState(ctx, chat.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, domain.ValuesShapeEmpty, state.Shape)
	assert.Empty(t, state.Messages)

	require.NoError(t, c.DeleteThread(ctx, chat.ThreadID))
	err = c.DeleteThread(ctx, chat.ThreadID)
	assert.True(t, client.IsNotFound(err))
}

func TestServer_CreateThreadUnknownAssistant(t *testing.T) {
	env := helpers.NewMockEnv(t)

	_, err := env.Client("alice").CreateThread(context.Background(), domain.CreateThreadRequest{AssistantID: "nope"})
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
}

func TestServer_Assistants(t *testing.T) {
	env := helpers.NewMockEnv(t)
	private := env.Backend.AddAssistant("alice", domain.Assistant{Name: "Private"})
	ctx := context.Background()

	a := env.Client("bob").GetAssistant(ctx, env.Assistant.AssistantID)
	require.NotNil(t, a)
	assert.Equal(t, "Test Bot", a.Name)
	assert.Equal(t, "chatbot", a.Config.Configurable["type"])

	assert.Nil(t, env.Client("bob").GetAssistant(ctx, private.AssistantID))
	assert.NotNil(t, env.Client("alice").GetAssistant(ctx, private.AssistantID))
}

func TestServer_UpdateStateReplacesById(t *testing.T) {
	env := helpers.NewMockEnv(t)
	ctx := context.Background()
	c := env.Client("alice")

	chat, err := c.CreateThread(ctx, domain.CreateThreadRequest{AssistantID: env.Assistant.AssistantID})
	require.NoError(t, err)

	require.NoError(t, c.UpdateThreadState(ctx, chat.ThreadID, []domain.Message{
		{ID: "m1", Type: domain.MessageTypeHuman, Content: "hi"},
		{ID: "m2", Type: domain.MessageTypeAI, Content: "hello"},
	}))
	require.NoError(t, c.UpdateThreadState(ctx, chat.ThreadID, []domain.Message{
		{ID: "m2", Type: domain.MessageTypeAI, Content: "hello there"},
	}))

	state, err := c.GetThreadState(ctx, chat.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, domain.ValuesShapeList, state.Shape)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hi", state.Messages[0].Content)
	assert.Equal(t, "hello there", state.Messages[1].Content)
}

func TestServer_ConfigSchema(t *testing.T) {
	env := helpers.NewMockEnv(t)

	raw, err := env.Client("alice").GetConfigSchema(context.Background())
	require.NoError(t, err)

	s, err := schema.Simplify(raw)
	require.NoError(t, err)
	assert.Equal(t, "string", s.Fields["type==agent/agent_type"].Type)
	assert.Equal(t, "number", s.Fields["type==chat_retrieval/temperature"].Type)
}

func TestServer_StreamRun(t *testing.T) {
	env := helpers.NewMockEnv(t)
	ctx := context.Background()
	c := env.Client("alice")

	chat, err := c.CreateThread(ctx, domain.CreateThreadRequest{AssistantID: env.Assistant.AssistantID})
	require.NoError(t, err)

	var events []string
	var last []domain.Message
	err = c.StreamRun(ctx, domain.RunRequest{
		ThreadID: chat.ThreadID,
		Input:    []domain.Message{{ID: "h1", Type: domain.MessageTypeHuman, Content: "ping pong"}},
	}, func(evt client.SSEEvent) error {
		events = append(events, evt.Event)
		if evt.Event == domain.StreamEventData {
			msgs, err := client.ParseDataEvent(evt.Data)
			require.NoError(t, err)
			last = msgs
		}
		return nil
	})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, domain.StreamEventMetadata, events[0])
	assert.Equal(t, domain.StreamEventEnd, events[len(events)-1])
	require.Len(t, last, 2)
	assert.Equal(t, "You said: ping pong", last[1].Content)

	state, err := c.GetThreadState(ctx, chat.ThreadID)
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, last[1].ID, state.Messages[1].ID)
}

func TestServer_StreamRunResponderError(t *testing.T) {
	env := helpers.NewMockEnv(t, mockapi.WithResponder(func(context.Context, []domain.Message) (string, error) {
		return "", errors.New("model unavailable")
	}))
	ctx := context.Background()
	c := env.Client("alice")

	chat, err := c.CreateThread(ctx, domain.CreateThreadRequest{AssistantID: env.Assistant.AssistantID})
	require.NoError(t, err)

	var errData *domain.StreamErrorData
	err = c.StreamRun(ctx, domain.RunRequest{ThreadID: chat.ThreadID}, func(evt client.SSEEvent) error {
		if evt.Event == domain.StreamEventError {
			d, perr := client.ParseErrorEvent(evt.Data)
			errData = d
			return perr
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, errData)
	assert.Equal(t, http.StatusInternalServerError, errData.StatusCode)
	assert.True(t, strings.Contains(errData.Message, "model unavailable"))
}

func TestServer_StreamRunUnknownThread(t *testing.T) {
	env := helpers.NewMockEnv(t)

	err := env.Client("alice").StreamRun(context.Background(), domain.RunRequest{ThreadID: "missing"}, func(client.SSEEvent) error { return nil })
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
}

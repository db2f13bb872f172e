package schema

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSimplifyMinimal(t *testing.T) {
	s, err := Simplify([]byte(`{"properties":{"configurable":{"properties":{"x":{"type":"string"}}}}}`))
	require.NoError(t, err)
	require.Contains(t, s.Fields, "x")
	assert.Equal(t, "string", s.Fields["x"].Type)

	d := DeriveDefaults(s)
	assert.Equal(t, "", d.Configurable["x"])
}

const pydanticSchema = `{
  "title": "RunnableConfigurableAlternativesConfig",
  "type": "object",
  "properties": {
    "configurable": {"$ref": "#/definitions/Configurable"}
  },
  "definitions": {
    "AgentType": {
      "title": "AgentType",
      "description": "An enumeration.",
      "enum": ["GPT 3.5 Turbo", "GPT 4"],
      "type": "string"
    },
    "Configurable": {
      "title": "Configurable",
      "type": "object",
      "properties": {
        "type": {"title": "Bot Type", "default": "chatbot", "enum": ["chatbot", "chat_retrieval", "agent"], "type": "string"},
        "agent_type": {"title": "Agent Type", "default": "GPT 3.5 Turbo", "allOf": [{"$ref": "#/definitions/AgentType"}]},
        "system_message": {"title": "Instructions", "type": "string"},
        "interrupt_before_action": {"title": "Tool Confirmation", "description": "ask first", "type": "boolean"},
        "tools": {"title": "Tools", "type": "array", "items": {"type": "string"}},
        "temperature": {"title": "Temperature", "anyOf": [{"type": "null"}, {"type": "number"}]},
        "retries": {"type": ["null", "integer"]}
      }
    }
  }
}`

func TestSimplifyResolvesReferences(t *testing.T) {
	s, err := Simplify([]byte(pydanticSchema))
	require.NoError(t, err)

	assert.Equal(t, []string{"agent_type", "interrupt_before_action", "retries", "system_message", "temperature", "tools", "type"}, s.Names())

	agent := s.Fields["agent_type"]
	assert.Equal(t, "string", agent.Type)
	assert.Equal(t, "Agent Type", agent.Title)
	assert.Equal(t, []string{"GPT 3.5 Turbo", "GPT 4"}, agent.Enum)
	assert.Equal(t, "GPT 3.5 Turbo", agent.Default)

	assert.Equal(t, "ask first", s.Fields["interrupt_before_action"].Description)
	require.NotNil(t, s.Fields["tools"].Items)
	assert.Equal(t, "string", s.Fields["tools"].Items.Type)
	assert.Equal(t, "number", s.Fields["temperature"].Type)
	assert.Equal(t, "integer", s.Fields["retries"].Type)
}

func TestDeriveDefaults(t *testing.T) {
	s, err := Simplify([]byte(pydanticSchema))
	require.NoError(t, err)

	d := DeriveDefaults(s)
	assert.Equal(t, "chatbot", d.Configurable["type"])
	assert.Equal(t, "GPT 3.5 Turbo", d.Configurable["agent_type"])
	assert.Equal(t, "", d.Configurable["system_message"])
	assert.Equal(t, false, d.Configurable["interrupt_before_action"])
	assert.Equal(t, []interface{}{}, d.Configurable["tools"])
	assert.Equal(t, 0, d.Configurable["temperature"])

	assert.Nil(t, DeriveDefaults(nil))
}

func TestDeriveDefaultsExplicitNull(t *testing.T) {
	s, err := Simplify([]byte(`{"properties":{"configurable":{"properties":{
		"a":{"type":"string","default":null},
		"b":{"type":"string"},
		"c":{"$ref":"#/definitions/C","default":null}
	}}},"definitions":{"C":{"type":"integer"}}}`))
	require.NoError(t, err)
	assert.True(t, s.Fields["a"].HasDefault)
	assert.False(t, s.Fields["b"].HasDefault)

	d := DeriveDefaults(s)
	require.Contains(t, d.Configurable, "a")
	assert.Nil(t, d.Configurable["a"])
	assert.Equal(t, "", d.Configurable["b"])
	require.Contains(t, d.Configurable, "c")
	assert.Nil(t, d.Configurable["c"])
}

func TestSimplifyWithoutConfigurable(t *testing.T) {
	s, err := Simplify([]byte(`{"properties":{}}`))
	require.NoError(t, err)
	assert.Empty(t, s.Fields)
}

func TestSimplifyErrors(t *testing.T) {
	_, err := Simplify([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidSchema)

	_, err = Simplify([]byte(`{"properties":{"configurable":{"$ref":"#/definitions/Missing"}}}`))
	assert.ErrorIs(t, err, ErrInvalidSchema)

	cyclic := `{"properties":{"configurable":{"$ref":"#/definitions/A"}},"definitions":{"A":{"$ref":"#/definitions/A"}}}`
	_, err = Simplify([]byte(cyclic))
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

type fakeFetcher struct {
	calls int32
	raw   json.RawMessage
	err   error
}

func (f *fakeFetcher) GetConfigSchema(ctx context.Context) (json.RawMessage, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.raw, f.err
}

func TestLoaderFetchesOnce(t *testing.T) {
	f := &fakeFetcher{raw: json.RawMessage(`{"properties":{"configurable":{"properties":{"x":{"type":"string","default":"hi"}}}}}`)}
	l := NewLoader(f, nil)

	s, d := l.Load(context.Background())
	require.NotNil(t, s)
	require.NotNil(t, d)
	assert.Equal(t, "hi", d.Configurable["x"])

	s2, _ := l.Load(context.Background())
	assert.Same(t, s, s2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestLoaderFailureLeavesNil(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	l := NewLoader(f, nil)

	s, d := l.Load(context.Background())
	assert.Nil(t, s)
	assert.Nil(t, d)

	l.Load(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestLoaderLogsSchema(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fakeFetcher{raw: json.RawMessage(`{"properties":{"configurable":{"properties":{"x":{"type":"string"},"y":{"type":"boolean"}}}}}`)}
	l := NewLoader(f, zap.New(core))

	s, _ := l.Load(context.Background())
	require.NotNil(t, s)

	entries := logs.FilterMessage("loaded config schema").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 2, fields["fields"])
	assert.Equal(t, s.String(), fields["schema"])
	assert.Contains(t, fields["schema"], "x: string")
	assert.Contains(t, fields["schema"], "y: boolean")
}

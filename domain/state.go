package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedState is returned when a thread state's values have an
// unsupported shape.
var ErrMalformedState = errors.New("malformed thread state")

// ThreadState is the normalized form of GET /threads/:thread_id/state.
type ThreadState struct {
	Shape    ValuesShape `json:"shape"`
	Messages []Message   `json:"messages"`
	Next     []string    `json:"next"`
}

type threadStateWire struct {
	Values json.RawMessage `json:"values"`
	Next   []string        `json:"next"`
}

// DecodeThreadState decodes and validates a thread state response. The
// "values" field may be absent, a list of messages, or an object carrying a
// "messages" list; every form yields an ordered message slice.
func DecodeThreadState(data []byte) (*ThreadState, error) {
	var wire threadStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	state := &ThreadState{Shape: ValuesShapeEmpty, Messages: []Message{}, Next: wire.Next}
	if state.Next == nil {
		state.Next = []string{}
	}

	values := bytes.TrimSpace(wire.Values)
	switch {
	case len(values) == 0 || bytes.Equal(values, []byte("null")):
	case values[0] == '[':
		var msgs []Message
		if err := json.Unmarshal(values, &msgs); err != nil {
			return nil, fmt.Errorf("%w: values list: %v", ErrMalformedState, err)
		}
		state.Shape = ValuesShapeList
		if msgs != nil {
			state.Messages = msgs
		}
	case values[0] == '{':
		var obj struct {
			Messages []Message `json:"messages"`
		}
		if err := json.Unmarshal(values, &obj); err != nil {
			return nil, fmt.Errorf("%w: values object: %v", ErrMalformedState, err)
		}
		state.Shape = ValuesShapeObject
		if obj.Messages != nil {
			state.Messages = obj.Messages
		}
	default:
		return nil, fmt.Errorf("%w: unexpected values %s", ErrMalformedState, truncate(values, 32))
	}

	return state, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

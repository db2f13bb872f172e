// Package domain defines the core models shared by the gptchat client.
package domain

import "time"

// Chat represents a persisted conversation thread.
type Chat struct {
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Name        string    `json:"name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assistant represents a configured agent definition.
type Assistant struct {
	AssistantID string          `json:"assistant_id"`
	Name        string          `json:"name"`
	Config      AssistantConfig `json:"config"`
	Public      bool            `json:"public"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AssistantConfig holds the run configuration of an assistant.
type AssistantConfig struct {
	Configurable map[string]interface{} `json:"configurable,omitempty"`
}

// CreateThreadRequest is the body of POST /threads.
type CreateThreadRequest struct {
	AssistantID string `json:"assistant_id"`
	Name        string `json:"name"`
}

// UpdateStateRequest is the body of POST /threads/:thread_id/state.
type UpdateStateRequest struct {
	Values []Message `json:"values"`
}

// RunRequest is the body of POST /runs/stream.
type RunRequest struct {
	ThreadID string                 `json:"thread_id"`
	Input    []Message              `json:"input"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// RunMetadata is the data of a "metadata" stream event.
type RunMetadata struct {
	RunID string `json:"run_id"`
}

// StreamErrorData is the data of an "error" stream event.
type StreamErrorData struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// StreamState is the in-memory view of an assistant response being generated.
type StreamState struct {
	Status   StreamStatus `json:"status"`
	Messages []Message    `json:"messages,omitempty"`
	RunID    string       `json:"run_id,omitempty"`
	Err      error        `json:"-"`
}

// Clone returns a copy whose message slice can be modified independently.
func (s *StreamState) Clone() *StreamState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Messages != nil {
		out.Messages = append([]Message(nil), s.Messages...)
	}
	return &out
}

package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xiaot623/gptchat/domain"
)

// maxEventSize bounds a single SSE line; data events carry whole message lists.
const maxEventSize = 4 << 20

// SSEEvent represents a parsed SSE event.
type SSEEvent struct {
	Event string
	Data  string
}

// EventHandler is called for each SSE event of a run stream.
type EventHandler func(event SSEEvent) error

// parseSSE reads an SSE stream and calls handler once per dispatched event.
// Field values lose a single leading space; data lines of one event are
// joined with newlines.
func parseSSE(reader io.Reader, handler EventHandler) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		event   SSEEvent
		data    []string
		pending bool
	)
	dispatch := func() error {
		if !pending {
			return nil
		}
		event.Data = strings.Join(data, "\n")
		err := handler(event)
		event, data, pending = SSEEvent{}, nil, false
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return err
			}
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event.Event = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
		// Comments (":") and id/retry fields are ignored.
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return dispatch()
}

// ParseMetadataEvent parses the data of a metadata event.
func ParseMetadataEvent(data string) (*domain.RunMetadata, error) {
	var meta domain.RunMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata event: %w", err)
	}
	return &meta, nil
}

// ParseDataEvent parses the message list of a data event.
func ParseDataEvent(data string) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse data event: %w", err)
	}
	return msgs, nil
}

// ParseErrorEvent parses the data of an error event.
func ParseErrorEvent(data string) (*domain.StreamErrorData, error) {
	var errEvt domain.StreamErrorData
	if err := json.Unmarshal([]byte(data), &errEvt); err != nil {
		return nil, fmt.Errorf("failed to parse error event: %w", err)
	}
	return &errEvt, nil
}

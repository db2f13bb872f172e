// Package messages reconciles a thread's persisted messages with a live run
// stream.
package messages

import "github.com/xiaot623/gptchat/domain"

// Merge overlays stream messages onto persisted ones by id. Persisted order
// is kept, a stream message replaces the persisted message with the same id,
// and stream-only messages are appended in stream order. An empty stream
// returns persisted unchanged.
func Merge(persisted, stream []domain.Message) []domain.Message {
	if len(stream) == 0 {
		return persisted
	}

	byID := make(map[string]int, len(stream))
	for i, m := range stream {
		byID[m.ID] = i
	}

	out := make([]domain.Message, 0, len(persisted)+len(stream))
	used := make([]bool, len(stream))
	for _, m := range persisted {
		if i, ok := byID[m.ID]; ok {
			out = append(out, stream[i])
			used[i] = true
			continue
		}
		out = append(out, m)
	}
	for i, m := range stream {
		if used[i] {
			continue
		}
		// A stream may repeat an id; the last occurrence wins.
		if byID[m.ID] != i {
			continue
		}
		out = append(out, m)
	}
	return out
}

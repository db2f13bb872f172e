// Package chatlist keeps a local, ordered view of the user's threads in sync
// with the backend.
package chatlist

import (
	"sort"

	"github.com/xiaot623/gptchat/domain"
)

type entry struct {
	chat domain.Chat
	seq  uint64
}

// Index is an ordered map of chats keyed by thread id. Chats are ordered by
// UpdatedAt descending; chats with equal UpdatedAt keep insertion order.
type Index struct {
	entries map[string]entry
	nextSeq uint64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Replace discards the current contents and inserts chats in order. When a
// thread id repeats, the later chat wins.
func (x *Index) Replace(chats []domain.Chat) {
	x.entries = make(map[string]entry, len(chats))
	for _, c := range chats {
		x.Upsert(c)
	}
}

// Upsert removes any chat with the same thread id and inserts chat as the
// most recently inserted entry.
func (x *Index) Upsert(chat domain.Chat) {
	x.nextSeq++
	x.entries[chat.ThreadID] = entry{chat: chat, seq: x.nextSeq}
}

// Remove deletes the chat with the given thread id and reports whether it
// was present.
func (x *Index) Remove(threadID string) bool {
	if _, ok := x.entries[threadID]; !ok {
		return false
	}
	delete(x.entries, threadID)
	return true
}

// Get returns the chat with the given thread id.
func (x *Index) Get(threadID string) (domain.Chat, bool) {
	e, ok := x.entries[threadID]
	return e.chat, ok
}

// Len returns the number of chats.
func (x *Index) Len() int {
	return len(x.entries)
}

// Chats returns the chats in order.
func (x *Index) Chats() []domain.Chat {
	ordered := make([]entry, 0, len(x.entries))
	for _, e := range x.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.chat.UpdatedAt.Equal(b.chat.UpdatedAt) {
			return a.chat.UpdatedAt.After(b.chat.UpdatedAt)
		}
		return a.seq < b.seq
	})

	out := make([]domain.Chat, len(ordered))
	for i, e := range ordered {
		out[i] = e.chat
	}
	return out
}

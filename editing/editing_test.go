package editing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gptchat/domain"
)

type fakeUpdater struct {
	threadID string
	values   []domain.Message
	calls    int
	err      error
	during   func()
}

func (f *fakeUpdater) UpdateThreadState(ctx context.Context, threadID string, values []domain.Message) error {
	f.calls++
	f.threadID = threadID
	f.values = values
	if f.during != nil {
		f.during()
	}
	return f.err
}

func msg(id, content string) domain.Message {
	return domain.Message{ID: id, Type: domain.MessageTypeHuman, Content: content}
}

func TestRecordOverwrites(t *testing.T) {
	e := NewEditor("t1", &fakeUpdater{}, nil, nil)
	e.Record(msg("m1", "first"))
	e.Record(msg("m1", "second"))

	pending := e.Pending()
	assert.Len(t, pending, 1)
	assert.Equal(t, "second", pending["m1"].Content)
}

func TestAbandonOne(t *testing.T) {
	e := NewEditor("t1", &fakeUpdater{}, nil, nil)
	e.Record(msg("m1", "a"))
	e.Record(msg("m2", "b"))

	e.Abandon("m1")
	pending := e.Pending()
	assert.Len(t, pending, 1)
	assert.Contains(t, pending, "m2")
}

func TestAbandonAll(t *testing.T) {
	e := NewEditor("t1", &fakeUpdater{}, nil, nil)
	e.Record(msg("m1", "a"))
	e.Record(msg("m2", "b"))

	e.Abandon()
	assert.Empty(t, e.Pending())
}

func TestCommitUnavailableWithoutThread(t *testing.T) {
	e := NewEditor("", &fakeUpdater{}, nil, nil)
	assert.Nil(t, e.Commit())
}

func TestCommitSuccess(t *testing.T) {
	updater := &fakeUpdater{}
	refreshed := 0
	e := NewEditor("t1", updater, func() { refreshed++ }, nil)
	e.Record(msg("m2", "b"))
	e.Record(msg("m1", "a"))
	e.Record(msg("m2", "b2"))

	commit := e.Commit()
	require.NotNil(t, commit)
	require.NoError(t, commit(context.Background()))

	assert.Equal(t, "t1", updater.threadID)
	assert.Equal(t, []domain.Message{msg("m2", "b2"), msg("m1", "a")}, updater.values)
	assert.Empty(t, e.Pending())
	assert.Equal(t, 1, refreshed)
}

func TestCommitFailureKeepsEdits(t *testing.T) {
	updater := &fakeUpdater{err: errors.New("backend returned status 500")}
	refreshed := 0
	e := NewEditor("t1", updater, func() { refreshed++ }, nil)
	e.Record(msg("m1", "a"))

	before := e.Pending()
	err := e.Commit()(context.Background())
	assert.Error(t, err)
	assert.Equal(t, before, e.Pending())
	assert.Zero(t, refreshed)
	assert.Equal(t, 1, updater.calls)
}

func TestCommitKeepsEditsRecordedInFlight(t *testing.T) {
	updater := &fakeUpdater{}
	e := NewEditor("t1", updater, nil, nil)
	e.Record(msg("m1", "a"))
	e.Record(msg("m2", "b"))
	updater.during = func() {
		e.Record(msg("m1", "a2"))
		e.Record(msg("m3", "c"))
	}

	require.NoError(t, e.Commit()(context.Background()))

	pending := e.Pending()
	assert.Len(t, pending, 2)
	assert.Equal(t, "a2", pending["m1"].Content)
	assert.Contains(t, pending, "m3")
}

func TestCommitEmptyBatch(t *testing.T) {
	updater := &fakeUpdater{}
	e := NewEditor("t1", updater, nil, nil)

	require.NoError(t, e.Commit()(context.Background()))
	assert.Empty(t, updater.values)
	assert.Equal(t, 1, updater.calls)
}

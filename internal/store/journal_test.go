package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/timelord/internal/testutils"
	"github.com/eigerco/timelord/internal/timelord"
	"github.com/eigerco/timelord/pkg/db/pebble"
)

func newJournal(t *testing.T) *Journal {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	j, err := NewJournal(kv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newEvent(t *testing.T, kind timelord.EventKind, height uint32) timelord.Event {
	return timelord.Event{
		Kind:    kind,
		Outcome: "adopted_fresh",
		Height:  height,
		Hash:    testutils.RandomHash(t),
		Time:    time.Unix(1_700_000_000, 123456789).UTC(),
	}
}

func Test_AppendEvents(t *testing.T) {
	j := newJournal(t)

	var appended []timelord.Event
	for i := uint32(1); i <= 5; i++ {
		e := newEvent(t, timelord.EventUnfinishedBlock, i)
		e.Iterations = uint64(i) * 100
		seq, err := j.Append(e)
		require.NoError(t, err)
		require.Equal(t, uint64(i), seq)
		appended = append(appended, e)
	}

	records, err := j.Events(1, 10)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, uint64(i+1), r.Seq)
		assert.Equal(t, appended[i], r.Event)
	}

	records, err = j.Events(3, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(3), records[0].Seq)
	assert.Equal(t, uint64(4), records[1].Seq)

	records, err = j.Events(6, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func Test_LatestPeak(t *testing.T) {
	j := newJournal(t)
	_, err := j.LatestPeak()
	require.ErrorIs(t, err, ErrNoPeak)

	first := newEvent(t, timelord.EventNewPeak, 1)
	_, err = j.Append(first)
	require.NoError(t, err)
	_, err = j.Append(newEvent(t, timelord.EventSkippingPeak, 2))
	require.NoError(t, err)

	peak, err := j.LatestPeak()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), peak.Seq)
	assert.Equal(t, first, peak.Event)

	second := newEvent(t, timelord.EventNewPeak, 3)
	_, err = j.Append(second)
	require.NoError(t, err)
	peak, err = j.LatestPeak()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), peak.Seq)
	assert.Equal(t, second.Hash, peak.Event.Hash)
}

func Test_JournalReopen(t *testing.T) {
	dir := t.TempDir()
	kv, err := pebble.NewKVStore(pebble.WithPath(dir))
	require.NoError(t, err)
	j, err := NewJournal(kv)
	require.NoError(t, err)
	for i := uint32(1); i <= 3; i++ {
		_, err := j.Append(newEvent(t, timelord.EventNewPeak, i))
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	kv, err = pebble.NewKVStore(pebble.WithPath(dir))
	require.NoError(t, err)
	j, err = NewJournal(kv)
	require.NoError(t, err)
	defer j.Close()

	seq, err := j.Append(newEvent(t, timelord.EventNewPeak, 4))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)

	peak, err := j.LatestPeak()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), peak.Event.Height)
}

func Test_Close(t *testing.T) {
	j := newJournal(t)
	require.NoError(t, j.Close())
	// Closing a closed journal should have no effect/error
	require.NoError(t, j.Close())
}

func Test_JournalClosed(t *testing.T) {
	j := newJournal(t)
	require.NoError(t, j.Close())

	_, err := j.Append(newEvent(t, timelord.EventNewPeak, 1))
	require.Equal(t, ErrJournalClosed, err)
	_, err = j.Events(1, 1)
	require.Equal(t, ErrJournalClosed, err)
	_, err = j.LatestPeak()
	require.Equal(t, ErrJournalClosed, err)
}

func Test_PrefixToString(t *testing.T) {
	assert.Equal(t, "event", PrefixToString(prefixEvent))
	assert.Equal(t, "latestPeak", PrefixToString(prefixLatestPeak))
	assert.Equal(t, "unknown", PrefixToString(0xff))
}

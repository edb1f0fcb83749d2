package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/timelord/internal/store"
	"github.com/eigerco/timelord/internal/testutils"
	"github.com/eigerco/timelord/internal/timelord"
	"github.com/eigerco/timelord/pkg/db/pebble"
)

func TestJournalCommand(t *testing.T) {
	dir := t.TempDir()
	kv, err := pebble.NewKVStore(pebble.WithPath(dir))
	require.NoError(t, err)
	journal, err := store.NewJournal(kv)
	require.NoError(t, err)

	peakHash := testutils.RandomHash(t)
	now := time.Unix(1_700_000_000, 0).UTC()
	_, err = journal.Append(timelord.Event{Kind: timelord.EventNewPeak, Outcome: "adopted_fresh", Height: 7, Hash: peakHash, Time: now})
	require.NoError(t, err)
	_, err = journal.Append(timelord.Event{Kind: timelord.EventUnfinishedBlock, Outcome: "admitted", Height: 8, Iterations: 300, Hash: testutils.RandomHash(t), Time: now})
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	run := func(args ...string) []journalEntry {
		cmd := rootCommand()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetArgs(append([]string{"journal", "--data-dir", dir, "--log-level", "error"}, args...))
		require.NoError(t, cmd.Execute())

		var entries []journalEntry
		for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
			var e journalEntry
			require.NoError(t, json.Unmarshal([]byte(line), &e))
			entries = append(entries, e)
		}
		return entries
	}

	entries := run()
	require.Len(t, entries, 2)
	assert.Equal(t, "new_peak", entries[0].Kind)
	assert.Equal(t, "unfinished_block", entries[1].Kind)
	assert.Equal(t, uint64(300), entries[1].Iterations)

	entries = run("--from", "2")
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(2), entries[0].Seq)

	entries = run("--latest-peak")
	require.Len(t, entries, 1)
	assert.Equal(t, peakHash.String(), entries[0].Hash)
	assert.True(t, now.Equal(entries[0].Time))
}

func TestJournalCommandRequiresDataDir(t *testing.T) {
	cmd := rootCommand()
	cmd.SetArgs([]string{"journal", "--log-level", "error"})
	require.Error(t, cmd.Execute())
}

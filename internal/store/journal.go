package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eigerco/timelord/internal/crypto"
	"github.com/eigerco/timelord/internal/timelord"
	"github.com/eigerco/timelord/pkg/db"
	"github.com/eigerco/timelord/pkg/db/pebble"
	"github.com/eigerco/timelord/pkg/log"
	"github.com/eigerco/timelord/pkg/serialization/codec"
)

var (
	ErrJournalClosed = errors.New("journal is closed")
	ErrNoPeak        = errors.New("no peak recorded")
)

// Record is a journaled event with its sequence number.
type Record struct {
	Seq   uint64
	Event timelord.Event
}

// eventRecord is the stored form of an event. Time is kept in nanoseconds so
// it survives the round trip exactly.
type eventRecord struct {
	Seq        uint64      `cbor:"1,keyasint"`
	Kind       string      `cbor:"2,keyasint"`
	Outcome    string      `cbor:"3,keyasint,omitempty"`
	Height     uint32      `cbor:"4,keyasint"`
	Iterations uint64      `cbor:"5,keyasint,omitempty"`
	Hash       crypto.Hash `cbor:"6,keyasint"`
	UnixNano   int64       `cbor:"7,keyasint"`
}

func newEventRecord(seq uint64, e timelord.Event) eventRecord {
	return eventRecord{
		Seq:        seq,
		Kind:       string(e.Kind),
		Outcome:    e.Outcome,
		Height:     e.Height,
		Iterations: e.Iterations,
		Hash:       e.Hash,
		UnixNano:   e.Time.UnixNano(),
	}
}

func (r eventRecord) record() Record {
	return Record{
		Seq: r.Seq,
		Event: timelord.Event{
			Kind:       timelord.EventKind(r.Kind),
			Outcome:    r.Outcome,
			Height:     r.Height,
			Iterations: r.Iterations,
			Hash:       r.Hash,
			Time:       time.Unix(0, r.UnixNano).UTC(),
		},
	}
}

// Journal keeps the timelord's event stream in a key-value store. Events are
// numbered from 1 in the order they are appended.
type Journal struct {
	db     db.KVStore
	mu     sync.Mutex
	next   uint64
	closed atomic.Bool
}

// NewJournal opens a journal over kv, continuing the numbering of any events
// already stored.
func NewJournal(kv db.KVStore) (*Journal, error) {
	j := &Journal{db: kv, next: 1}

	iter, err := kv.NewIterator([]byte{prefixEvent}, db.PrefixEnd([]byte{prefixEvent}))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()
	if iter.Last() {
		key := iter.Key()
		j.next = binary.BigEndian.Uint64(key[1:]) + 1
	}
	return j, nil
}

// Append stores e and returns its sequence number. An adopted peak also
// becomes the latest peak, in the same batch.
func (j *Journal) Append(e timelord.Event) (uint64, error) {
	if j.closed.Load() {
		return 0, ErrJournalClosed
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	seq := j.next
	value, err := codec.CBOR.Marshal(newEventRecord(seq, e))
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	batch := j.db.NewBatch()
	defer batch.Close()
	if err := batch.Put(seqKey(prefixEvent, seq), value); err != nil {
		return 0, fmt.Errorf("store event: %w", err)
	}
	if e.Kind == timelord.EventNewPeak {
		if err := batch.Put([]byte{prefixLatestPeak}, value); err != nil {
			return 0, fmt.Errorf("store latest peak: %w", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf(ErrFailedBatchCommit, err)
	}

	j.next++
	return seq, nil
}

// Events returns up to limit events starting at sequence fromSeq.
func (j *Journal) Events(fromSeq uint64, limit int) ([]Record, error) {
	if j.closed.Load() {
		return nil, ErrJournalClosed
	}

	iter, err := j.db.NewIterator(seqKey(prefixEvent, fromSeq), db.PrefixEnd([]byte{prefixEvent}))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var records []Record
	for len(records) < limit && iter.Next() {
		value, err := iter.Value()
		if err != nil {
			log.Store.Warn().Err(err).Msg("read event value from iterator")
			continue
		}
		var r eventRecord
		if err := codec.CBOR.Unmarshal(value, &r); err != nil {
			log.Store.Warn().Err(err).Str("prefix", PrefixToString(iter.Key()[0])).Hex("key", iter.Key()).Msg("decode event")
			continue
		}
		records = append(records, r.record())
	}
	return records, nil
}

// LatestPeak returns the most recently adopted peak event.
func (j *Journal) LatestPeak() (Record, error) {
	if j.closed.Load() {
		return Record{}, ErrJournalClosed
	}

	value, err := j.db.Get([]byte{prefixLatestPeak})
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Record{}, ErrNoPeak
		}
		return Record{}, fmt.Errorf("get latest peak: %w", err)
	}
	var r eventRecord
	if err := codec.CBOR.Unmarshal(value, &r); err != nil {
		return Record{}, fmt.Errorf("decode latest peak: %w", err)
	}
	return r.record(), nil
}

// Close closes the journal and its store
func (j *Journal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}
	return j.db.Close()
}

package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/shuffle"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

// MemoryStreamStore is an in-process stream store with the same
// conditional-write semantics as the redis store. Used in tests and
// dev mode.
type MemoryStreamStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

var _ command.StreamRepository = (*MemoryStreamStore)(nil)

// NewMemoryStreamStore creates an empty MemoryStreamStore.
func NewMemoryStreamStore() *MemoryStreamStore {
	return &MemoryStreamStore{records: map[string][]byte{}}
}

// Create stores a new aggregate, failing if the day already exists.
func (m *MemoryStreamStore) Create(ctx context.Context, s *stream.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[s.Day]; ok {
		return errors.Wrapf(command.ErrStreamAlreadyExists, "day %s", s.Day)
	}
	data, err := encodeStream(s)
	if err != nil {
		return err
	}
	m.records[s.Day] = data
	return nil
}

// Load reconstructs the aggregate for a day.
func (m *MemoryStreamStore) Load(ctx context.Context, day string) (*stream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.records[day]
	if !ok {
		return nil, errors.Wrapf(command.ErrStreamNotFound, "day %s", day)
	}
	return decodeStream(data)
}

// Save overwrites the aggregate snapshot if the stored revision still
// matches expectedRevision, then increments the revision.
func (m *MemoryStreamStore) Save(ctx context.Context, s *stream.Stream, expectedRevision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.records[s.Day]
	if !ok {
		return errors.Wrapf(command.ErrStreamNotFound, "day %s", s.Day)
	}
	current, err := decodeStream(data)
	if err != nil {
		return err
	}
	if current.Revision != expectedRevision {
		return errors.Wrapf(command.ErrRevisionMismatch,
			"day %s: expected revision %d, found %d", s.Day, expectedRevision, current.Revision)
	}

	s.Revision = expectedRevision + 1
	next, err := encodeStream(s)
	if err != nil {
		s.Revision = expectedRevision
		return err
	}
	m.records[s.Day] = next
	return nil
}

// MemoryShuffleStore is the in-process counterpart for lotteries.
type MemoryShuffleStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

var _ command.ShuffleRepository = (*MemoryShuffleStore)(nil)

// NewMemoryShuffleStore creates an empty MemoryShuffleStore.
func NewMemoryShuffleStore() *MemoryShuffleStore {
	return &MemoryShuffleStore{records: map[string][]byte{}}
}

// Load reconstructs the lottery for a day.
func (m *MemoryShuffleStore) Load(ctx context.Context, day string) (*shuffle.Lottery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.records[day]
	if !ok {
		return nil, errors.Wrapf(command.ErrShuffleNotFound, "day %s", day)
	}
	var l shuffle.Lottery
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(err, "failed to decode shuffle")
	}
	return &l, nil
}

// Save overwrites the lottery snapshot if the stored revision still
// matches expectedRevision, then increments the revision. A revision
// of zero creates the record when none exists yet.
func (m *MemoryShuffleStore) Save(ctx context.Context, l *shuffle.Lottery, expectedRevision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data, ok := m.records[l.StreamDay]; ok {
		var current shuffle.Lottery
		if err := json.Unmarshal(data, &current); err != nil {
			return errors.Wrap(err, "failed to decode shuffle")
		}
		if current.Revision != expectedRevision {
			return errors.Wrapf(command.ErrRevisionMismatch,
				"shuffle day %s: expected revision %d, found %d", l.StreamDay, expectedRevision, current.Revision)
		}
	} else if expectedRevision != 0 {
		return errors.Wrapf(command.ErrShuffleNotFound, "day %s", l.StreamDay)
	}

	l.Revision = expectedRevision + 1
	next, err := json.Marshal(l)
	if err != nil {
		l.Revision = expectedRevision
		return errors.Wrap(err, "failed to encode shuffle")
	}
	m.records[l.StreamDay] = next
	return nil
}

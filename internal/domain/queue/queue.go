package queue

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrDuplicateSong        = errors.New("song is already in the queue")
	ErrDuplicateUserRequest = errors.New("user already has a request in the queue")
	ErrEmptyQueue           = errors.New("queue is empty")
	ErrRequestNotFound      = errors.New("request not found in queue")
	ErrNoSongForUser        = errors.New("user has no request in the queue")
)

// SongQueue is an ordered collection of active song requests.
// Song IDs and requesters are unique among active entries; played
// entries move to an append-only history.
type SongQueue struct {
	entries []Entry
	history []Entry
}

// New creates an empty SongQueue.
func New() *SongQueue {
	return &SongQueue{
		entries: make([]Entry, 0),
		history: make([]Entry, 0),
	}
}

// Restore rebuilds a SongQueue from persisted entries.
func Restore(entries, history []Entry) *SongQueue {
	q := New()
	q.entries = append(q.entries, entries...)
	q.history = append(q.history, history...)
	return q
}

// Entries returns a copy of the active entries in queue order.
func (q *SongQueue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// History returns a copy of the played entries in play order.
func (q *SongQueue) History() []Entry {
	out := make([]Entry, len(q.history))
	copy(out, q.history)
	return out
}

// Len returns the number of active entries.
func (q *SongQueue) Len() int {
	return len(q.entries)
}

// Add appends a request to the end of the queue.
func (q *SongQueue) Add(e Entry) error {
	if _, ok := q.FindByID(e.SongID); ok {
		return errors.Wrapf(ErrDuplicateSong, "song %s", e.SongID)
	}
	if _, ok := q.FindByUser(e.RequestedBy); ok {
		return errors.Wrapf(ErrDuplicateUserRequest, "user %s", e.RequestedBy)
	}
	q.entries = append(q.entries, e)
	return nil
}

// Remove deletes the request with the given song ID, preserving the
// order of the remaining entries.
func (q *SongQueue) Remove(songID string) (Entry, error) {
	if len(q.entries) == 0 {
		return Entry{}, ErrEmptyQueue
	}
	i := q.indexOf(songID)
	if i < 0 {
		return Entry{}, errors.Wrapf(ErrRequestNotFound, "song %s", songID)
	}
	e := q.entries[i]
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return e, nil
}

// Move removes the request with the given song ID and reinserts it at
// position. Positions are 0-based; every entry between the old and new
// position shifts by one slot, all other relative orderings are kept.
// Positions past the end place the entry last.
func (q *SongQueue) Move(songID string, position int) error {
	if len(q.entries) == 0 {
		return ErrEmptyQueue
	}
	i := q.indexOf(songID)
	if i < 0 {
		return errors.Wrapf(ErrRequestNotFound, "song %s", songID)
	}
	e := q.entries[i]
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.insertAt(e, position)
	return nil
}

// InsertAsBump inserts the entry into the bumped block at the front of
// the queue and marks it bumped. With no explicit position the entry
// goes immediately after the last currently bumped entry, so repeated
// bumps stack in arrival order ahead of the organic queue. An explicit
// position overrides the placement (moderator override).
func (q *SongQueue) InsertAsBump(e Entry, position *int) error {
	return q.insertPrivileged(e, position, StatusBumped)
}

// InsertAsShuffleWinner inserts the winning entry at the very front of
// the queue, ahead of any previously bumped entries, and marks it as
// the shuffle winner. An explicit position overrides the placement.
func (q *SongQueue) InsertAsShuffleWinner(e Entry, position *int) error {
	if position == nil {
		front := 0
		position = &front
	}
	return q.insertPrivileged(e, position, StatusShuffleWinner)
}

func (q *SongQueue) insertPrivileged(e Entry, position *int, status Status) error {
	if _, ok := q.FindByID(e.SongID); ok {
		return errors.Wrapf(ErrDuplicateSong, "song %s", e.SongID)
	}
	if _, ok := q.FindByUser(e.RequestedBy); ok {
		return errors.Wrapf(ErrDuplicateUserRequest, "user %s", e.RequestedBy)
	}
	e.Status = status
	if position != nil {
		q.insertAt(e, *position)
		return nil
	}
	q.insertAt(e, q.bumpedBlockEnd())
	return nil
}

// FindByUser returns the active entry requested by the given user.
func (q *SongQueue) FindByUser(user string) (Entry, bool) {
	for _, e := range q.entries {
		if e.RequestedBy == user {
			return e, true
		}
	}
	return Entry{}, false
}

// FindByID returns the active entry with the given song ID.
func (q *SongQueue) FindByID(songID string) (Entry, bool) {
	i := q.indexOf(songID)
	if i < 0 {
		return Entry{}, false
	}
	return q.entries[i], true
}

// MarkShuffleEntered transitions the user's request into the shuffle.
// Re-marking an entry that is already in the shuffle is a no-op, so a
// past round's losers can enter again once a new round opens; the
// lottery itself rejects duplicate joins within one round.
func (q *SongQueue) MarkShuffleEntered(user string) (Entry, error) {
	for i, e := range q.entries {
		if e.RequestedBy != user {
			continue
		}
		q.entries[i].Status = StatusShuffleEntered
		return q.entries[i], nil
	}
	return Entry{}, errors.Wrapf(ErrNoSongForUser, "user %s", user)
}

// MarkPlayed removes the request from the active queue and appends it
// to the play history. A song already in the history is skipped rather
// than erroring, so duplicate played notifications are harmless.
func (q *SongQueue) MarkPlayed(songID string) (Entry, error) {
	for _, e := range q.history {
		if e.SongID == songID {
			return e, nil
		}
	}
	i := q.indexOf(songID)
	if i < 0 {
		return Entry{}, errors.Wrapf(ErrRequestNotFound, "song %s", songID)
	}
	e := q.entries[i]
	e.Status = StatusPlayed
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.history = append(q.history, e)
	return e, nil
}

// indexOf returns the index of the active entry with the given song ID,
// or -1 if absent.
func (q *SongQueue) indexOf(songID string) int {
	for i, e := range q.entries {
		if e.SongID == songID {
			return i
		}
	}
	return -1
}

// insertAt inserts the entry at the given 0-based position, clamping
// out-of-range positions to the queue bounds.
func (q *SongQueue) insertAt(e Entry, position int) {
	if position < 0 {
		position = 0
	}
	if position > len(q.entries) {
		position = len(q.entries)
	}
	q.entries = append(q.entries, Entry{})
	copy(q.entries[position+1:], q.entries[position:])
	q.entries[position] = e
}

// bumpedBlockEnd returns the index just past the last bumped entry.
func (q *SongQueue) bumpedBlockEnd() int {
	end := 0
	for i, e := range q.entries {
		if e.Status.bumped() {
			end = i + 1
		}
	}
	return end
}

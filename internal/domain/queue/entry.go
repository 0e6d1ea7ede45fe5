// Package queue provides the SongQueue domain entity.
package queue

import "time"

// Status represents the lifecycle state of a queue entry.
type Status string

const (
	StatusQueued         Status = "QUEUED"
	StatusBumped         Status = "BUMPED"
	StatusShuffleEntered Status = "SHUFFLE_ENTERED"
	StatusShuffleWinner  Status = "SHUFFLE_WINNER"
	StatusPlayed         Status = "PLAYED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// bumped reports whether the entry sits in the bumped block at the
// front of the queue.
func (s Status) bumped() bool {
	return s == StatusBumped || s == StatusShuffleWinner
}

// Entry represents a single song request in the queue.
type Entry struct {
	SongID      string        // External song/video ID
	RequestedBy string        // Viewer who requested the song
	Title       string        // Song title
	Duration    time.Duration // Song duration
	Status      Status        // Current lifecycle state
	RequestedAt time.Time     // Time when the request was accepted
}

// NewEntry creates a queued entry for a viewer request.
func NewEntry(songID, requestedBy, title string, duration time.Duration, requestedAt time.Time) Entry {
	return Entry{
		SongID:      songID,
		RequestedBy: requestedBy,
		Title:       title,
		Duration:    duration,
		Status:      StatusQueued,
		RequestedAt: requestedAt,
	}
}

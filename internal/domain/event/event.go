// Package event provides the domain events published after mutations.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a domain event.
type Type string

const (
	TypeSongAddedToQueue      Type = "song-added-to-queue"
	TypeSongRemovedFromQueue  Type = "song-removed-from-queue"
	TypeSongMovedInQueue      Type = "song-moved-in-queue"
	TypeSongBumpedInQueue     Type = "song-bumped-in-queue"
	TypeUserEnteredInShuffle  Type = "user-entered-in-shuffle"
	TypeShuffleWinnerSelected Type = "shuffle-winner-selected"
)

// Source identifies this service as the event origin.
const Source = "kentobot-api"

// Version is the current event envelope version.
const Version = 1

// Event is the envelope published to the event bus. Delivery is
// at-least-once; consumers deduplicate on ID.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Source     string    `json:"source"`
	Version    int       `json:"version"`
	Payload    any       `json:"payload"`
}

// New creates an event envelope with a fresh ID.
func New(t Type, occurredAt time.Time, payload any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: occurredAt,
		Source:     Source,
		Version:    Version,
		Payload:    payload,
	}
}

// SongPayload describes the affected queue entry.
type SongPayload struct {
	StreamDay   string `json:"streamDay"`
	SongID      string `json:"songId"`
	RequestedBy string `json:"requestedBy"`
	Title       string `json:"title,omitempty"`
	Position    *int   `json:"position,omitempty"`
	Category    string `json:"category,omitempty"`
}

// ShufflePayload describes a shuffle entry or winner.
type ShufflePayload struct {
	StreamDay string `json:"streamDay"`
	User      string `json:"user"`
	SongID    string `json:"songId"`
}

// Package command provides the command handlers for the song request
// service. Each handler loads the stream-day aggregate, applies one
// mutation, persists the whole aggregate, and publishes the resulting
// domain events.
package command

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/jsnphil/kentobot-api-sub000/internal/domain/event"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/shuffle"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

var (
	ErrStreamAlreadyExists = errors.New("stream already exists for this day")
	ErrStreamNotFound      = errors.New("no stream exists for this day")
	ErrShuffleNotFound     = errors.New("no shuffle exists for this day")
	ErrRevisionMismatch    = errors.New("stream was modified concurrently")
)

// StreamRepository persists the per-day stream aggregate. Create is a
// conditional "create if absent" write; Save rejects the write with
// ErrRevisionMismatch unless the stored revision equals
// expectedRevision, and increments the revision on success.
type StreamRepository interface {
	Create(ctx context.Context, s *stream.Stream) error
	Load(ctx context.Context, day string) (*stream.Stream, error)
	Save(ctx context.Context, s *stream.Stream, expectedRevision int64) error
}

// ShuffleRepository persists the shuffle lottery, keyed by the same
// stream day but stored independently of the aggregate. Save carries
// the same conditional-write contract as StreamRepository.Save: the
// write is rejected with ErrRevisionMismatch unless the stored
// revision equals expectedRevision. An expectedRevision of zero
// creates the record when absent.
type ShuffleRepository interface {
	Load(ctx context.Context, day string) (*shuffle.Lottery, error)
	Save(ctx context.Context, l *shuffle.Lottery, expectedRevision int64) error
}

// EventBus publishes domain events. Delivery is fire-and-forget,
// at-least-once.
type EventBus interface {
	Publish(ctx context.Context, events ...event.Event) error
}

// Package stream provides the per-stream-day aggregate root.
package stream

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jsnphil/kentobot-api-sub000/internal/domain/bump"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/event"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/queue"
)

var (
	ErrInvalidDay = errors.New("stream day must be formatted as YYYY-MM-DD")
)

// DayFormat is the calendar key for a stream day.
const DayFormat = "2006-01-02"

// ParseDay validates a stream-day key.
func ParseDay(day string) (string, error) {
	t, err := time.Parse(DayFormat, day)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidDay, "%q", day)
	}
	return t.Format(DayFormat), nil
}

// Stream is the aggregate root for one stream day: the song queue and
// the bump ledger, plus the revision used for optimistic concurrency.
// Every save must present the revision it loaded; the repository
// rejects the write on mismatch.
type Stream struct {
	Day      string
	Revision int64
	Queue    *queue.SongQueue
	Bumps    *bump.Ledger
}

// New creates the aggregate for a fresh stream day.
func New(day string, beanPool, channelPointsPool int) *Stream {
	return &Stream{
		Day:   day,
		Queue: queue.New(),
		Bumps: bump.NewLedger(beanPool, channelPointsPool),
	}
}

// RequestSong validates nothing beyond queue invariants; the caller is
// responsible for metadata and content-policy checks before the entry
// reaches the aggregate.
func (s *Stream) RequestSong(e queue.Entry) (event.Event, error) {
	if err := s.Queue.Add(e); err != nil {
		return event.Event{}, err
	}
	return event.New(event.TypeSongAddedToQueue, e.RequestedAt, event.SongPayload{
		StreamDay:   s.Day,
		SongID:      e.SongID,
		RequestedBy: e.RequestedBy,
		Title:       e.Title,
	}), nil
}

// RemoveSong removes a request from the queue.
func (s *Stream) RemoveSong(songID string, now time.Time) (event.Event, error) {
	e, err := s.Queue.Remove(songID)
	if err != nil {
		return event.Event{}, err
	}
	return event.New(event.TypeSongRemovedFromQueue, now, event.SongPayload{
		StreamDay:   s.Day,
		SongID:      e.SongID,
		RequestedBy: e.RequestedBy,
		Title:       e.Title,
	}), nil
}

// MoveSong repositions a request. Positions are 0-based.
func (s *Stream) MoveSong(songID string, position int, now time.Time) (event.Event, error) {
	if err := s.Queue.Move(songID, position); err != nil {
		return event.Event{}, err
	}
	e, _ := s.Queue.FindByID(songID)
	return event.New(event.TypeSongMovedInQueue, now, event.SongPayload{
		StreamDay:   s.Day,
		SongID:      e.SongID,
		RequestedBy: e.RequestedBy,
		Title:       e.Title,
		Position:    &position,
	}), nil
}

// BumpSong redeems a bump for the user's queued request and moves it
// into the bumped block. With modOverride the ledger is left untouched
// and the placement is entirely caller-controlled.
func (s *Stream) BumpSong(user string, category bump.Category, position *int, modOverride bool, now time.Time) (event.Event, error) {
	e, ok := s.Queue.FindByUser(user)
	if !ok {
		return event.Event{}, errors.Wrapf(queue.ErrNoSongForUser, "user %s", user)
	}

	placement := bump.Placement{Category: category, User: user, Position: position}
	if !modOverride {
		var err error
		placement, err = s.Bumps.Redeem(user, category)
		if err != nil {
			return event.Event{}, err
		}
		placement.Position = position
	}

	if _, err := s.Queue.Remove(e.SongID); err != nil {
		return event.Event{}, err
	}
	if err := s.Queue.InsertAsBump(e, placement.Position); err != nil {
		return event.Event{}, err
	}

	return event.New(event.TypeSongBumpedInQueue, now, event.SongPayload{
		StreamDay:   s.Day,
		SongID:      e.SongID,
		RequestedBy: e.RequestedBy,
		Title:       e.Title,
		Position:    placement.Position,
		Category:    category.String(),
	}), nil
}

// PromoteShuffleWinner moves the winning user's request into the
// bumped block with the shuffle-winner status.
func (s *Stream) PromoteShuffleWinner(user string, now time.Time) (event.Event, error) {
	e, ok := s.Queue.FindByUser(user)
	if !ok {
		return event.Event{}, errors.Wrapf(queue.ErrNoSongForUser, "user %s", user)
	}
	if _, err := s.Queue.Remove(e.SongID); err != nil {
		return event.Event{}, err
	}
	if err := s.Queue.InsertAsShuffleWinner(e, nil); err != nil {
		return event.Event{}, err
	}
	return event.New(event.TypeShuffleWinnerSelected, now, event.ShufflePayload{
		StreamDay: s.Day,
		User:      user,
		SongID:    e.SongID,
	}), nil
}

// EnterShuffle marks the user's request as entered in the shuffle.
func (s *Stream) EnterShuffle(user string, now time.Time) (event.Event, error) {
	e, err := s.Queue.MarkShuffleEntered(user)
	if err != nil {
		return event.Event{}, err
	}
	return event.New(event.TypeUserEnteredInShuffle, now, event.ShufflePayload{
		StreamDay: s.Day,
		User:      user,
		SongID:    e.SongID,
	}), nil
}

// MarkPlayed records a song as played, moving it to the play history.
// Duplicate notifications are skipped.
func (s *Stream) MarkPlayed(songID string) (queue.Entry, error) {
	return s.Queue.MarkPlayed(songID)
}

// ResetBumpPools restores both free bump pools to their maxima.
func (s *Stream) ResetBumpPools() {
	s.Bumps.Reset()
}

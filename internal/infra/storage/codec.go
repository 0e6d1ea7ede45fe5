// Package storage provides the persistence adapters for the stream
// aggregate and the shuffle lottery.
package storage

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/jsnphil/kentobot-api-sub000/internal/domain/bump"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/queue"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

// streamRecord is the persisted snapshot of a stream-day aggregate.
type streamRecord struct {
	Day      string        `json:"day"`
	Revision int64         `json:"revision"`
	Entries  []entryRecord `json:"entries"`
	History  []entryRecord `json:"history"`
	Bumps    bumpRecord    `json:"bumps"`
}

type entryRecord struct {
	SongID      string    `json:"songId"`
	RequestedBy string    `json:"requestedBy"`
	Title       string    `json:"title"`
	DurationSec int64     `json:"durationSec"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requestedAt"`
}

type bumpRecord struct {
	BeanRemaining          int               `json:"beanRemaining"`
	ChannelPointsRemaining int               `json:"channelPointsRemaining"`
	BeanMax                int               `json:"beanMax"`
	ChannelPointsMax       int               `json:"channelPointsMax"`
	PaidGrants             map[string]string `json:"paidGrants"`
}

func encodeStream(s *stream.Stream) ([]byte, error) {
	rec := streamRecord{
		Day:      s.Day,
		Revision: s.Revision,
		Entries:  encodeEntries(s.Queue.Entries()),
		History:  encodeEntries(s.Queue.History()),
		Bumps: bumpRecord{
			BeanRemaining:          s.Bumps.BeanRemaining,
			ChannelPointsRemaining: s.Bumps.ChannelPointsRemaining,
			BeanMax:                s.Bumps.BeanMax,
			ChannelPointsMax:       s.Bumps.ChannelPointsMax,
			PaidGrants:             encodeGrants(s.Bumps.PaidGrants),
		},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode stream")
	}
	return data, nil
}

func decodeStream(data []byte) (*stream.Stream, error) {
	var rec streamRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode stream")
	}
	grants := make(map[string]bump.Category, len(rec.Bumps.PaidGrants))
	for user, category := range rec.Bumps.PaidGrants {
		grants[user] = bump.Category(category)
	}
	return &stream.Stream{
		Day:      rec.Day,
		Revision: rec.Revision,
		Queue:    queue.Restore(decodeEntries(rec.Entries), decodeEntries(rec.History)),
		Bumps: &bump.Ledger{
			BeanRemaining:          rec.Bumps.BeanRemaining,
			ChannelPointsRemaining: rec.Bumps.ChannelPointsRemaining,
			BeanMax:                rec.Bumps.BeanMax,
			ChannelPointsMax:       rec.Bumps.ChannelPointsMax,
			PaidGrants:             grants,
		},
	}, nil
}

func encodeEntries(entries []queue.Entry) []entryRecord {
	out := make([]entryRecord, len(entries))
	for i, e := range entries {
		out[i] = entryRecord{
			SongID:      e.SongID,
			RequestedBy: e.RequestedBy,
			Title:       e.Title,
			DurationSec: int64(e.Duration / time.Second),
			Status:      e.Status.String(),
			RequestedAt: e.RequestedAt,
		}
	}
	return out
}

func decodeEntries(records []entryRecord) []queue.Entry {
	out := make([]queue.Entry, len(records))
	for i, r := range records {
		out[i] = queue.Entry{
			SongID:      r.SongID,
			RequestedBy: r.RequestedBy,
			Title:       r.Title,
			Duration:    time.Duration(r.DurationSec) * time.Second,
			Status:      queue.Status(r.Status),
			RequestedAt: r.RequestedAt,
		}
	}
	return out
}

func encodeGrants(grants map[string]bump.Category) map[string]string {
	out := make(map[string]string, len(grants))
	for user, category := range grants {
		out[user] = category.String()
	}
	return out
}

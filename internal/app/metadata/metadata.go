// Package metadata provides the song metadata lookup port.
package metadata

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrSongNotFound = errors.New("song not found")

// Song is the metadata returned for a candidate song request. The
// content-policy chain decides from these fields whether the request
// may enter the queue.
type Song struct {
	ID         string        // Provider song ID
	Title      string        // Display title
	Duration   time.Duration // Song duration
	Public     bool          // Publicly visible on the provider
	Live       bool          // Live content (never queued)
	Embeddable bool          // Playable through the embedded player
	Regions    []string      // Regions the song is available in
	Playable   *bool         // Provider playability override, if reported
}

// AvailableInRegion checks if the song is available in the given
// region. A provider-reported playability flag takes precedence over
// the region list.
func (s *Song) AvailableInRegion(region string) bool {
	if s.Playable != nil {
		return *s.Playable
	}
	for _, r := range s.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// Provider looks up song metadata by ID.
type Provider interface {
	Lookup(ctx context.Context, songID string) (Song, error)
}

package metadata

import (
	"context"
	"time"
)

// StaticProvider serves permissive synthetic metadata for any song ID.
// It exists so the server can run locally without upstream credentials.
type StaticProvider struct {
	Duration time.Duration
}

var _ Provider = (*StaticProvider)(nil)

// Lookup returns a playable song for every ID.
func (p *StaticProvider) Lookup(ctx context.Context, songID string) (Song, error) {
	d := p.Duration
	if d == 0 {
		d = 3 * time.Minute
	}
	playable := true
	return Song{
		ID:         songID,
		Title:      songID,
		Duration:   d,
		Public:     true,
		Live:       false,
		Embeddable: true,
		Playable:   &playable,
	}, nil
}

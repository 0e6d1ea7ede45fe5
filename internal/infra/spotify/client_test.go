package spotify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Localized URL",
			input:    "https://open.spotify.com/intl-ja/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Plain track ID",
			input:    "4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "URL with multiple query params",
			input:    "https://open.spotify.com/track/abc123?si=xyz&utm_source=copy",
			expected: "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractTrackID(tt.input)
			assert.Equal(t, tt.expected, result,
				"extractTrackID(%s) should return %s", tt.input, tt.expected)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "rate limit error with 429",
			err:      errors.New("Error 429: rate limit exceeded"),
			expected: true,
		},
		{
			name:     "rate limit text",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 500",
			err:      errors.New("Error 500: internal server error"),
			expected: true,
		},
		{
			name:     "server error 502",
			err:      errors.New("502 Bad Gateway"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "not found error",
			err:      errors.New("404 not found"),
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConvertTrack(t *testing.T) {
	c := &Client{market: "US"}

	playable := true
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:       "4uLU6hMCjMI75M1A2tKUQC",
			Name:     "Never Gonna Give You Up",
			Duration: 213000,
			Artists: []spotify.SimpleArtist{
				{Name: "Rick Astley"},
			},
		},
		IsPlayable: &playable,
	}

	song := c.convertTrack(full)
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", song.ID)
	assert.Equal(t, "Rick Astley - Never Gonna Give You Up", song.Title)
	assert.Equal(t, 213*time.Second, song.Duration)
	assert.True(t, song.Public)
	assert.False(t, song.Live)
	assert.True(t, song.Embeddable)
	if assert.NotNil(t, song.Playable) {
		assert.True(t, *song.Playable)
	}
	// Market-scoped lookups relink instead of listing markets.
	assert.Empty(t, song.Regions)
}

func TestConvertTrack_NoRelinkFlag(t *testing.T) {
	c := &Client{market: "US"}

	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:   "abc",
			Name: "Untitled",
		},
	}

	song := c.convertTrack(full)
	assert.Equal(t, "Untitled", song.Title)
	assert.Nil(t, song.Playable)
	assert.Equal(t, []string{"US"}, song.Regions)
}

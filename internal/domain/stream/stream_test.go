package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnphil/kentobot-api-sub000/internal/domain/bump"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/event"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/queue"
)

var testNow = time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)

func request(songID, user string, duration time.Duration) queue.Entry {
	return queue.NewEntry(songID, user, "title-"+songID, duration, testNow)
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "2025-01-01", want: "2025-01-01"},
		{input: "2025-1-1", wantErr: true},
		{input: "not-a-day", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDay(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStream_RequestSong(t *testing.T) {
	s := New("2025-01-01", 3, 3)

	ev, err := s.RequestSong(request("songA", "vin", 200*time.Second))
	require.NoError(t, err)
	assert.Equal(t, event.TypeSongAddedToQueue, ev.Type)
	assert.Equal(t, event.Source, ev.Source)
	assert.NotEmpty(t, ev.ID)

	payload, ok := ev.Payload.(event.SongPayload)
	require.True(t, ok)
	assert.Equal(t, "songA", payload.SongID)
	assert.Equal(t, "vin", payload.RequestedBy)

	_, err = s.RequestSong(request("songA", "kelsier", 100*time.Second))
	assert.ErrorIs(t, err, queue.ErrDuplicateSong)
}

func TestStream_BumpSong(t *testing.T) {
	s := New("2025-01-01", 3, 3)
	_, err := s.RequestSong(request("songA", "vin", 200*time.Second))
	require.NoError(t, err)
	_, err = s.RequestSong(request("songB", "kelsier", 180*time.Second))
	require.NoError(t, err)

	ev, err := s.BumpSong("kelsier", bump.CategoryBean, nil, false, testNow)
	require.NoError(t, err)
	assert.Equal(t, event.TypeSongBumpedInQueue, ev.Type)

	entries := s.Queue.Entries()
	assert.Equal(t, "songB", entries[0].SongID)
	assert.Equal(t, queue.StatusBumped, entries[0].Status)
	assert.Equal(t, 2, s.Bumps.BeanRemaining)

	// Without a queued request there is nothing to bump.
	_, err = s.BumpSong("sazed", bump.CategoryBean, nil, false, testNow)
	assert.ErrorIs(t, err, queue.ErrNoSongForUser)
}

func TestStream_BumpSong_ModOverride(t *testing.T) {
	s := New("2025-01-01", 0, 0)
	_, err := s.RequestSong(request("songA", "vin", 200*time.Second))
	require.NoError(t, err)
	_, err = s.RequestSong(request("songB", "kelsier", 180*time.Second))
	require.NoError(t, err)

	// The pools are empty, but a moderator override skips the ledger.
	pos := 0
	_, err = s.BumpSong("kelsier", bump.CategoryBean, &pos, true, testNow)
	require.NoError(t, err)
	assert.Equal(t, "songB", s.Queue.Entries()[0].SongID)
	assert.Equal(t, 0, s.Bumps.BeanRemaining)
}

func TestStream_ShuffleScenario(t *testing.T) {
	// The end-to-end queue shape from a typical stream night.
	s := New("2025-01-01", 3, 3)

	_, err := s.RequestSong(request("songA", "vin", 200*time.Second))
	require.NoError(t, err)
	_, err = s.RequestSong(request("songB", "kelsier", 180*time.Second))
	require.NoError(t, err)

	_, err = s.BumpSong("kelsier", bump.CategoryBean, nil, false, testNow)
	require.NoError(t, err)
	assert.Equal(t, "songB", s.Queue.Entries()[0].SongID)
	assert.Equal(t, 2, s.Bumps.BeanRemaining)

	ev, err := s.EnterShuffle("vin", testNow)
	require.NoError(t, err)
	assert.Equal(t, event.TypeUserEnteredInShuffle, ev.Type)

	ev, err = s.PromoteShuffleWinner("vin", testNow)
	require.NoError(t, err)
	assert.Equal(t, event.TypeShuffleWinnerSelected, ev.Type)

	// The winner lands ahead of the previously bumped entry.
	entries := s.Queue.Entries()
	assert.Equal(t, "songA", entries[0].SongID)
	assert.Equal(t, queue.StatusShuffleWinner, entries[0].Status)
	assert.Equal(t, "songB", entries[1].SongID)
}

func TestStream_RemoveAndMove(t *testing.T) {
	s := New("2025-01-01", 3, 3)
	for _, e := range []queue.Entry{
		request("songA", "vin", time.Minute),
		request("songB", "kelsier", time.Minute),
		request("songC", "sazed", time.Minute),
	} {
		_, err := s.RequestSong(e)
		require.NoError(t, err)
	}

	ev, err := s.MoveSong("songC", 0, testNow)
	require.NoError(t, err)
	assert.Equal(t, event.TypeSongMovedInQueue, ev.Type)
	assert.Equal(t, "songC", s.Queue.Entries()[0].SongID)

	ev, err = s.RemoveSong("songB", testNow)
	require.NoError(t, err)
	assert.Equal(t, event.TypeSongRemovedFromQueue, ev.Type)
	assert.Equal(t, 2, s.Queue.Len())
}

func TestStream_MarkPlayedIdempotent(t *testing.T) {
	s := New("2025-01-01", 3, 3)
	_, err := s.RequestSong(request("songA", "vin", time.Minute))
	require.NoError(t, err)

	e, err := s.MarkPlayed("songA")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPlayed, e.Status)

	_, err = s.MarkPlayed("songA")
	assert.NoError(t, err)
	assert.Len(t, s.Queue.History(), 1)
}

func TestStream_ResetBumpPools(t *testing.T) {
	s := New("2025-01-01", 3, 3)
	_, err := s.RequestSong(request("songA", "vin", time.Minute))
	require.NoError(t, err)
	_, err = s.BumpSong("vin", bump.CategoryBean, nil, false, testNow)
	require.NoError(t, err)
	require.Equal(t, 2, s.Bumps.BeanRemaining)

	s.ResetBumpPools()
	assert.Equal(t, 3, s.Bumps.BeanRemaining)
}

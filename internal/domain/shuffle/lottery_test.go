package shuffle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// pickFirst always selects the first (sorted) entrant.
type pickFirst struct{}

func (pickFirst) Intn(n int) int { return 0 }

// pickIndex selects a fixed index.
type pickIndex int

func (p pickIndex) Intn(n int) int { return int(p) % n }

func newTestLottery(t *testing.T) (*Lottery, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)}
	return New("2025-01-01", time.Minute, WithClock(clock.now)), clock
}

func TestLottery_JoinRequiresOpen(t *testing.T) {
	l, clock := newTestLottery(t)

	// Closed by construction.
	assert.ErrorIs(t, l.Join("vin", "songA"), ErrShuffleNotOpen)

	require.NoError(t, l.Open(2))
	require.NoError(t, l.Join("vin", "songA"))

	// Explicit close stops entries.
	l.Close()
	assert.ErrorIs(t, l.Join("kelsier", "songB"), ErrShuffleNotOpen)

	// Reopen, then let the window lapse: the timeout is only observed
	// lazily on the next access.
	require.NoError(t, l.Open(2))
	clock.advance(61 * time.Second)
	assert.False(t, l.IsOpen())
	assert.ErrorIs(t, l.Join("kelsier", "songB"), ErrShuffleNotOpen)
}

func TestLottery_OpenWhileOpen(t *testing.T) {
	l, _ := newTestLottery(t)
	require.NoError(t, l.Open(2))
	assert.ErrorIs(t, l.Open(2), ErrAlreadyOpen)
}

func TestLottery_OpenAfterExpiryAllowed(t *testing.T) {
	l, clock := newTestLottery(t)
	require.NoError(t, l.Open(2))
	clock.advance(2 * time.Minute)
	assert.NoError(t, l.Open(2))
}

func TestLottery_JoinDuplicate(t *testing.T) {
	l, _ := newTestLottery(t)
	require.NoError(t, l.Open(2))
	require.NoError(t, l.Join("vin", "songA"))
	assert.ErrorIs(t, l.Join("vin", "songA"), ErrAlreadyEntered)
}

func TestLottery_SelectWinner(t *testing.T) {
	l, _ := newTestLottery(t)
	require.NoError(t, l.Open(2))
	require.NoError(t, l.Join("vin", "songA"))
	require.NoError(t, l.Join("kelsier", "songB"))

	w, ok := l.SelectWinner(pickIndex(1))
	require.True(t, ok)
	assert.Equal(t, "vin", w.User) // sorted order: kelsier, vin
	assert.Equal(t, "songA", w.SongID)

	// Selection always terminates the round.
	assert.False(t, l.IsOpen())
	assert.ErrorIs(t, l.Join("sazed", "songC"), ErrShuffleNotOpen)
}

func TestLottery_SelectWinnerEmpty(t *testing.T) {
	l, _ := newTestLottery(t)
	require.NoError(t, l.Open(2))

	w, ok := l.SelectWinner(pickFirst{})
	assert.False(t, ok)
	assert.Equal(t, Winner{}, w)
	assert.False(t, l.IsOpen())
	assert.Nil(t, l.Winner)
}

func TestLottery_CooldownLifecycle(t *testing.T) {
	l, clock := newTestLottery(t)

	// Round 1: vin wins.
	require.NoError(t, l.Open(2))
	require.NoError(t, l.Join("vin", "songA"))
	_, ok := l.SelectWinner(pickFirst{})
	require.True(t, ok)

	// Round 2: winner cooldown starts at 2 rounds.
	clock.advance(time.Minute)
	require.NoError(t, l.Open(2))
	assert.ErrorIs(t, l.Join("vin", "songA"), ErrUserOnCooldown)
	require.NoError(t, l.Join("kelsier", "songB"))
	l.Close()

	// Round 3: cooldown decremented to 1, still blocked.
	require.NoError(t, l.Open(2))
	assert.ErrorIs(t, l.Join("vin", "songA"), ErrUserOnCooldown)
	l.Close()

	// Round 4: cooldown expired and pruned.
	require.NoError(t, l.Open(2))
	assert.NoError(t, l.Join("vin", "songA"))
	assert.NotContains(t, l.Cooldowns, "vin")
}

func TestLottery_CooldownValuesNonNegative(t *testing.T) {
	l, _ := newTestLottery(t)
	l.Cooldowns = map[string]int{"vin": 1, "kelsier": 3}

	require.NoError(t, l.Open(2))
	assert.NotContains(t, l.Cooldowns, "vin")
	assert.Equal(t, 2, l.Cooldowns["kelsier"])
	for user, rounds := range l.Cooldowns {
		assert.Greater(t, rounds, 0, "user %s", user)
	}
}

func TestLottery_OpenClearsEntriesAndWinner(t *testing.T) {
	l, clock := newTestLottery(t)
	require.NoError(t, l.Open(2))
	require.NoError(t, l.Join("vin", "songA"))
	_, ok := l.SelectWinner(pickFirst{})
	require.True(t, ok)

	clock.advance(time.Minute)
	require.NoError(t, l.Open(2))
	assert.Empty(t, l.Entries)
	assert.Nil(t, l.Winner)
}

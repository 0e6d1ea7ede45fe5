// Package shuffle provides the timed shuffle lottery state machine.
package shuffle

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrAlreadyOpen    = errors.New("shuffle is already open")
	ErrShuffleNotOpen = errors.New("shuffle is not open")
	ErrUserOnCooldown = errors.New("user is on shuffle cooldown")
	ErrAlreadyEntered = errors.New("user already entered the shuffle")
)

// DefaultWindow is how long a shuffle round accepts entries.
const DefaultWindow = 60 * time.Second

// Rand supplies the winner selection randomness. *math/rand.Rand
// satisfies it; tests inject a deterministic source.
type Rand interface {
	Intn(n int) int
}

// Winner is the selected entrant and their song.
type Winner struct {
	User   string `json:"user"`
	SongID string `json:"songId"`
}

// Lottery is one shuffle round for a stream day. Entries are only
// accepted while the round is open; cooldowns carry across rounds.
// The open window is re-evaluated lazily on access, there is no
// background timer. Like the stream aggregate, every save must
// present the revision it loaded.
type Lottery struct {
	StreamDay string            `json:"streamDay"`
	Revision  int64             `json:"revision"`
	OpenedAt  time.Time         `json:"openedAt"`
	Window    time.Duration     `json:"window"`
	Closed    bool              `json:"closed"`
	Entries   map[string]string `json:"entries"`   // user -> songID
	Cooldowns map[string]int    `json:"cooldowns"` // user -> remaining rounds
	Winner    *Winner           `json:"winner,omitempty"`

	now func() time.Time
}

// Option configures a Lottery.
type Option func(*Lottery)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Lottery) {
		l.now = now
	}
}

// New creates a closed lottery with no entries for the given day.
func New(streamDay string, window time.Duration, opts ...Option) *Lottery {
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Lottery{
		StreamDay: streamDay,
		Window:    window,
		Closed:    true,
		Entries:   make(map[string]string),
		Cooldowns: make(map[string]int),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// SetClock restores the time source after loading a persisted lottery.
func (l *Lottery) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Lottery) clock() time.Time {
	if l.now == nil {
		return time.Now()
	}
	return l.now()
}

// IsOpen reports whether the round currently accepts entries. A round
// that has outlived its window is observed as closed on the next
// access, not at the exact deadline.
func (l *Lottery) IsOpen() bool {
	return !l.Closed && l.clock().Before(l.OpenedAt.Add(l.Window))
}

// Open starts a fresh round. The entry set is cleared, every carried
// cooldown is decremented with zero-valued entries pruned, and the
// previous round's winner starts their cooldown.
func (l *Lottery) Open(cooldownRounds int) error {
	if l.IsOpen() {
		return ErrAlreadyOpen
	}

	next := make(map[string]int, len(l.Cooldowns))
	for user, rounds := range l.Cooldowns {
		if rounds > 1 {
			next[user] = rounds - 1
		}
	}
	if l.Winner != nil && cooldownRounds > 0 {
		next[l.Winner.User] = cooldownRounds
	}

	l.OpenedAt = l.clock()
	l.Closed = false
	l.Entries = make(map[string]string)
	l.Cooldowns = next
	l.Winner = nil
	return nil
}

// Join records the user's entry in the current round.
func (l *Lottery) Join(user, songID string) error {
	if !l.IsOpen() {
		return ErrShuffleNotOpen
	}
	if l.Cooldowns[user] > 0 {
		return errors.Wrapf(ErrUserOnCooldown, "user %s (%d rounds left)", user, l.Cooldowns[user])
	}
	if _, ok := l.Entries[user]; ok {
		return errors.Wrapf(ErrAlreadyEntered, "user %s", user)
	}
	l.Entries[user] = songID
	return nil
}

// Close ends the round. Closing an already closed round is a no-op.
func (l *Lottery) Close() {
	l.Closed = true
}

// SelectWinner closes the round and picks a winner uniformly at random
// among the entrants. An empty round yields no winner and the lottery
// simply stays closed.
func (l *Lottery) SelectWinner(r Rand) (Winner, bool) {
	l.Close()

	if len(l.Entries) == 0 {
		return Winner{}, false
	}

	users := make([]string, 0, len(l.Entries))
	for user := range l.Entries {
		users = append(users, user)
	}
	sort.Strings(users)

	user := users[r.Intn(len(users))]
	w := Winner{User: user, SongID: l.Entries[user]}
	l.Winner = &w
	return w, true
}

package command

import (
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/policy"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/bump"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/event"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/queue"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/shuffle"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

// saveRetries bounds how often a command replays its read-mutate-write
// cycle after losing a revision race.
const saveRetries = 3

// PolicyError reports a song rejected by the content-policy chain.
type PolicyError struct {
	Code string
}

func (e *PolicyError) Error() string {
	return "request rejected by content policy: " + e.Code
}

// Config holds the tunables for new stream days and shuffle rounds.
type Config struct {
	BeanPool          int
	ChannelPointsPool int
	ShuffleWindow     time.Duration
	CooldownRounds    int
}

// Service is the command surface over the stream aggregate. All
// collaborators are constructor-injected so tests can substitute them.
type Service struct {
	streams  StreamRepository
	shuffles ShuffleRepository
	bus      EventBus
	metadata metadata.Provider
	policy   *policy.Chain
	cfg      Config

	now  func() time.Time
	rand shuffle.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRand overrides the winner-selection randomness, for tests.
func WithRand(r shuffle.Rand) Option {
	return func(s *Service) {
		s.rand = r
	}
}

// NewService creates the command service.
func NewService(
	streams StreamRepository,
	shuffles ShuffleRepository,
	bus EventBus,
	provider metadata.Provider,
	chain *policy.Chain,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.ShuffleWindow <= 0 {
		cfg.ShuffleWindow = shuffle.DefaultWindow
	}
	s := &Service{
		streams:  streams,
		shuffles: shuffles,
		bus:      bus,
		metadata: provider,
		policy:   chain,
		cfg:      cfg,
		now:      time.Now,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StartStream creates the aggregate for a new stream day.
func (s *Service) StartStream(ctx context.Context, day string) (*stream.Stream, error) {
	day, err := stream.ParseDay(day)
	if err != nil {
		return nil, err
	}
	st := stream.New(day, s.cfg.BeanPool, s.cfg.ChannelPointsPool)
	if err := s.streams.Create(ctx, st); err != nil {
		return nil, err
	}
	zlog.Info().Str("day", day).Msg("stream created")
	return st, nil
}

// GetStream returns the current aggregate state for a day.
func (s *Service) GetStream(ctx context.Context, day string) (*stream.Stream, error) {
	return s.streams.Load(ctx, day)
}

// RequestSong looks up the song's metadata, runs the content-policy
// chain, and appends the request to the queue. A song failing policy
// is never queued.
func (s *Service) RequestSong(ctx context.Context, day, user, songID string) (queue.Entry, error) {
	song, err := s.metadata.Lookup(ctx, songID)
	if err != nil {
		return queue.Entry{}, errors.Wrapf(err, "lookup song %s", songID)
	}

	if result := s.policy.Execute(ctx, song); !result.Accepted {
		zlog.Debug().Str("song_id", songID).Str("code", result.Code).Msg("request rejected by policy")
		return queue.Entry{}, &PolicyError{Code: result.Code}
	}

	entry := queue.NewEntry(song.ID, user, song.Title, song.Duration, s.now())
	err = s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		ev, err := st.RequestSong(entry)
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	})
	if err != nil {
		return queue.Entry{}, err
	}
	return entry, nil
}

// RemoveSong removes a request from the queue.
func (s *Service) RemoveSong(ctx context.Context, day, songID string) error {
	return s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		ev, err := st.RemoveSong(songID, s.now())
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	})
}

// MoveSong repositions a request. Positions are 0-based.
func (s *Service) MoveSong(ctx context.Context, day, songID string, position int) error {
	return s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		ev, err := st.MoveSong(songID, position, s.now())
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	})
}

// BumpSong redeems a bump for the user's queued request. With
// modOverride the eligibility ledger is bypassed and the placement is
// caller-controlled.
func (s *Service) BumpSong(ctx context.Context, day, user string, category bump.Category, position *int, modOverride bool) error {
	return s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		ev, err := st.BumpSong(user, category, position, modOverride, s.now())
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	})
}

// MarkPlayed records a song as played. Duplicate notifications are
// skipped rather than erroring.
func (s *Service) MarkPlayed(ctx context.Context, day, songID string) (queue.Entry, error) {
	var played queue.Entry
	err := s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		e, err := st.MarkPlayed(songID)
		if err != nil {
			return nil, err
		}
		played = e
		return nil, nil
	})
	return played, err
}

// ResetBumpPools restores both free bump pools to their maxima.
func (s *Service) ResetBumpPools(ctx context.Context, day string) error {
	return s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		st.ResetBumpPools()
		return nil, nil
	})
}

// ToggleShuffle opens or closes the shuffle lottery for a day.
func (s *Service) ToggleShuffle(ctx context.Context, day string, open bool) error {
	for attempt := 0; ; attempt++ {
		lottery, err := s.loadOrNewLottery(ctx, day)
		if err != nil {
			return err
		}

		if open {
			if err := lottery.Open(s.cfg.CooldownRounds); err != nil {
				return err
			}
		} else {
			lottery.Close()
		}

		if err := s.shuffles.Save(ctx, lottery, lottery.Revision); err != nil {
			if errors.Is(err, ErrRevisionMismatch) && attempt < saveRetries-1 {
				zlog.Debug().Str("day", day).Int("attempt", attempt+1).Msg("shuffle revision race lost, retrying")
				continue
			}
			return err
		}
		zlog.Info().Str("day", day).Bool("open", open).Msg("shuffle toggled")
		return nil
	}
}

// EnterShuffle enters the user's queued request into the open lottery.
func (s *Service) EnterShuffle(ctx context.Context, day, user string) error {
	st, err := s.streams.Load(ctx, day)
	if err != nil {
		return err
	}
	e, ok := st.Queue.FindByUser(user)
	if !ok {
		return errors.Wrapf(queue.ErrNoSongForUser, "user %s", user)
	}

	entered := false
	return s.withShuffle(ctx, day, func(lottery *shuffle.Lottery) error {
		// Join validates open, cooldown, and duplicate against the
		// freshest lottery snapshot on every attempt, so a denial
		// leaves both records untouched.
		if err := lottery.Join(user, e.SongID); err != nil {
			return err
		}
		if entered {
			return nil
		}
		// The queue transition happens once; a replay after a lost
		// lottery revision race only redoes the lottery write.
		if err := s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
			ev, err := st.EnterShuffle(user, s.now())
			if err != nil {
				return nil, err
			}
			return []event.Event{ev}, nil
		}); err != nil {
			return err
		}
		entered = true
		return nil
	})
}

// SelectShuffleWinner closes the lottery, picks a winner uniformly at
// random among the entrants, and bumps the winner's song ahead of the
// queue. An empty lottery yields no winner.
func (s *Service) SelectShuffleWinner(ctx context.Context, day string) (shuffle.Winner, bool, error) {
	var (
		winner shuffle.Winner
		ok     bool
	)
	err := s.withShuffle(ctx, day, func(lottery *shuffle.Lottery) error {
		winner, ok = lottery.SelectWinner(s.rand)
		return nil
	})
	if err != nil {
		return shuffle.Winner{}, false, err
	}
	if !ok {
		zlog.Info().Str("day", day).Msg("shuffle closed with no entrants")
		return shuffle.Winner{}, false, nil
	}

	err = s.withStream(ctx, day, func(st *stream.Stream) ([]event.Event, error) {
		ev, err := st.PromoteShuffleWinner(winner.User, s.now())
		if err != nil {
			return nil, err
		}
		return []event.Event{ev}, nil
	})
	if err != nil {
		return shuffle.Winner{}, false, err
	}

	zlog.Info().Str("day", day).Str("user", winner.User).Str("song_id", winner.SongID).Msg("shuffle winner selected")
	return winner, true, nil
}

// loadOrNewLottery loads the day's lottery, creating a closed one if
// none has been persisted yet.
func (s *Service) loadOrNewLottery(ctx context.Context, day string) (*shuffle.Lottery, error) {
	lottery, err := s.shuffles.Load(ctx, day)
	if err != nil {
		if errors.Is(err, ErrShuffleNotFound) {
			return shuffle.New(day, s.cfg.ShuffleWindow, shuffle.WithClock(s.now)), nil
		}
		return nil, err
	}
	lottery.SetClock(s.now)
	return lottery, nil
}

// withShuffle runs one read-mutate-write cycle against the day's
// lottery, replaying it when the save loses a revision race. A day
// with no persisted lottery reports the shuffle as not open.
func (s *Service) withShuffle(ctx context.Context, day string, fn func(*shuffle.Lottery) error) error {
	for attempt := 0; ; attempt++ {
		lottery, err := s.shuffles.Load(ctx, day)
		if err != nil {
			if errors.Is(err, ErrShuffleNotFound) {
				return shuffle.ErrShuffleNotOpen
			}
			return err
		}
		lottery.SetClock(s.now)

		if err := fn(lottery); err != nil {
			return err
		}

		if err := s.shuffles.Save(ctx, lottery, lottery.Revision); err != nil {
			if errors.Is(err, ErrRevisionMismatch) && attempt < saveRetries-1 {
				zlog.Debug().Str("day", day).Int("attempt", attempt+1).Msg("shuffle revision race lost, retrying")
				continue
			}
			return err
		}
		return nil
	}
}

// withStream runs one read-mutate-write cycle against the aggregate,
// replaying it when the save loses a revision race. The snapshot is
// written once, only after the whole mutation succeeded; any failure
// aborts before the write.
func (s *Service) withStream(ctx context.Context, day string, fn func(*stream.Stream) ([]event.Event, error)) error {
	day, err := stream.ParseDay(day)
	if err != nil {
		return err
	}

	for attempt := 0; ; attempt++ {
		st, err := s.streams.Load(ctx, day)
		if err != nil {
			return err
		}

		events, err := fn(st)
		if err != nil {
			return err
		}

		if err := s.streams.Save(ctx, st, st.Revision); err != nil {
			if errors.Is(err, ErrRevisionMismatch) && attempt < saveRetries-1 {
				zlog.Debug().Str("day", day).Int("attempt", attempt+1).Msg("revision race lost, retrying")
				continue
			}
			return err
		}

		s.publish(ctx, events)
		return nil
	}
}

// publish sends events to the bus. Publishing is fire-and-forget: the
// command has already been persisted, so a bus failure is logged and
// swallowed.
func (s *Service) publish(ctx context.Context, events []event.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.bus.Publish(ctx, events...); err != nil {
		zlog.Error().Err(err).Int("count", len(events)).Msg("failed to publish events")
	}
}

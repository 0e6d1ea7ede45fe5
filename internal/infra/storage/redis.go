package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/shuffle"
	"github.com/jsnphil/kentobot-api-sub000/internal/domain/stream"
)

const (
	streamKeyPrefix  = "kentobot:stream:"
	shuffleKeyPrefix = "kentobot:shuffle:"
)

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

// RedisStreamStore persists stream aggregates as JSON snapshots keyed
// by stream day. Creation is a conditional SETNX; saves run inside a
// WATCH transaction so a concurrent writer fails the revision check
// instead of silently losing the update.
type RedisStreamStore struct {
	client *redis.Client
}

var _ command.StreamRepository = (*RedisStreamStore)(nil)

// NewRedisStreamStore creates a RedisStreamStore.
func NewRedisStreamStore(client *redis.Client) *RedisStreamStore {
	return &RedisStreamStore{client: client}
}

func streamKey(day string) string {
	return streamKeyPrefix + day
}

// Create stores a new aggregate, failing if the day already exists.
func (r *RedisStreamStore) Create(ctx context.Context, s *stream.Stream) error {
	data, err := encodeStream(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, streamKey(s.Day), data, 0).Result()
	if err != nil {
		return errors.Wrap(err, "redis setnx")
	}
	if !ok {
		return errors.Wrapf(command.ErrStreamAlreadyExists, "day %s", s.Day)
	}
	return nil
}

// Load reconstructs the aggregate for a day.
func (r *RedisStreamStore) Load(ctx context.Context, day string) (*stream.Stream, error) {
	data, err := r.client.Get(ctx, streamKey(day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(command.ErrStreamNotFound, "day %s", day)
		}
		return nil, errors.Wrap(err, "redis get")
	}
	return decodeStream(data)
}

// Save overwrites the aggregate snapshot if the stored revision still
// matches expectedRevision, then increments the revision.
func (r *RedisStreamStore) Save(ctx context.Context, s *stream.Stream, expectedRevision int64) error {
	key := streamKey(s.Day)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return errors.Wrapf(command.ErrStreamNotFound, "day %s", s.Day)
			}
			return errors.Wrap(err, "redis get")
		}
		current, err := decodeStream(data)
		if err != nil {
			return err
		}
		if current.Revision != expectedRevision {
			return errors.Wrapf(command.ErrRevisionMismatch,
				"day %s: expected revision %d, found %d", s.Day, expectedRevision, current.Revision)
		}

		s.Revision = expectedRevision + 1
		next, err := encodeStream(s)
		if err != nil {
			s.Revision = expectedRevision
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between our read and the
		// transaction commit.
		s.Revision = expectedRevision
		return errors.Wrapf(command.ErrRevisionMismatch, "day %s", s.Day)
	}
	return err
}

// RedisShuffleStore persists lotteries as JSON snapshots.
type RedisShuffleStore struct {
	client *redis.Client
}

var _ command.ShuffleRepository = (*RedisShuffleStore)(nil)

// NewRedisShuffleStore creates a RedisShuffleStore.
func NewRedisShuffleStore(client *redis.Client) *RedisShuffleStore {
	return &RedisShuffleStore{client: client}
}

// Load reconstructs the lottery for a day.
func (r *RedisShuffleStore) Load(ctx context.Context, day string) (*shuffle.Lottery, error) {
	data, err := r.client.Get(ctx, shuffleKeyPrefix+day).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(command.ErrShuffleNotFound, "day %s", day)
		}
		return nil, errors.Wrap(err, "redis get")
	}
	var l shuffle.Lottery
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(err, "failed to decode shuffle")
	}
	return &l, nil
}

// Save overwrites the lottery snapshot if the stored revision still
// matches expectedRevision, then increments the revision. A revision
// of zero creates the record when none exists yet. Like the stream
// store, the write runs inside a WATCH transaction so a concurrent
// writer fails the revision check instead of silently losing entries.
func (r *RedisShuffleStore) Save(ctx context.Context, l *shuffle.Lottery, expectedRevision int64) error {
	key := shuffleKeyPrefix + l.StreamDay

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expectedRevision != 0 {
				return errors.Wrapf(command.ErrShuffleNotFound, "day %s", l.StreamDay)
			}
		case err != nil:
			return errors.Wrap(err, "redis get")
		default:
			var current shuffle.Lottery
			if err := json.Unmarshal(data, &current); err != nil {
				return errors.Wrap(err, "failed to decode shuffle")
			}
			if current.Revision != expectedRevision {
				return errors.Wrapf(command.ErrRevisionMismatch,
					"shuffle day %s: expected revision %d, found %d", l.StreamDay, expectedRevision, current.Revision)
			}
		}

		l.Revision = expectedRevision + 1
		next, err := json.Marshal(l)
		if err != nil {
			l.Revision = expectedRevision
			return errors.Wrap(err, "failed to encode shuffle")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		l.Revision = expectedRevision
		return errors.Wrapf(command.ErrRevisionMismatch, "shuffle day %s", l.StreamDay)
	}
	return err
}

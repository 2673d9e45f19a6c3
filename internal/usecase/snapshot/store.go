// Package snapshot persists engine-wide order book snapshots in Redis so the
// engine can recover resting state after a restart.
package snapshot

import (
	"context"
	"encoding/json"

	snapshotv1 "github.com/kavex/exchange/internal/domain/snapshot/v1"
	"github.com/kavex/exchange/pkg/errors"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/kavex/exchange/pkg/redis"
)

const snapshotKey = "matching-engine:snapshot"

// RedisStore is the Redis-backed snapshot store. It implements
// snapshotv1.Store.
type RedisStore struct {
	logger      *logger.Logger
	redisclient redis.Client
}

// NewRedisStore creates a snapshot store over the given Redis client.
func NewRedisStore(redisclient redis.Client, log *logger.Logger) *RedisStore {
	return &RedisStore{
		logger:      log,
		redisclient: redisclient,
	}
}

// Store serializes the snapshot and writes it to Redis.
func (s *RedisStore) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "marshal snapshot",
		})
		return errors.NewTracer("snapshot_marshal_error").Wrap(err)
	}

	if err := s.redisclient.Set(ctx, snapshotKey, buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "store snapshot",
		})
		return errors.NewTracer("snapshot_store_error").Wrap(err)
	}

	s.logger.InfoContext(ctx, "snapshot stored",
		logger.Field{Key: "orderOffset", Value: snapshot.OrderOffset},
		logger.Field{Key: "books", Value: len(snapshot.Books)},
	)
	return nil
}

// Load reads the latest snapshot from Redis. It returns nil without error
// when no snapshot exists yet.
func (s *RedisStore) Load(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, snapshotKey)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.NewTracer("snapshot_load_error").Wrap(err)
	}

	if data == "" {
		s.logger.WarnContext(ctx, "no snapshot found", logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.NewTracer("snapshot_unmarshal_error").Wrap(err)
	}

	return &snapshot, nil
}

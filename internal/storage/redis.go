package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

// writeScript bumps the version and replaces the record in one server-side
// step, so concurrent writers for a user always see distinct versions.
//
// KEYS[1] record hash, KEYS[2] user index set
// ARGV[1] data, ARGV[2] last_updated, ARGV[3] user id
var writeScript = redis.NewScript(`
local version = redis.call("HINCRBY", KEYS[1], "version", 1)
redis.call("HSET", KEYS[1], "data", ARGV[1], "last_updated", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
return version
`)

// RedisStore keeps each record in a hash with data, version and
// last_updated fields. Metadata is stamped into data on read.
type RedisStore struct {
	client *redis.Client
	prefix string
	clock  Clock
	logger infralogger.Logger
}

// NewRedisStore creates a RedisStore using keys under prefix.
func NewRedisStore(client *redis.Client, prefix string, clock Clock, log infralogger.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, clock: clock, logger: log}
}

func (s *RedisStore) recordKey(userID string) string {
	return s.prefix + "user:" + userID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "users"
}

func (s *RedisStore) Read(ctx context.Context, userID string) (json.RawMessage, bool, error) {
	key := s.recordKey(userID)

	values, err := s.client.HMGet(ctx, key, "data", "last_updated", "version").Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis read %s: %w", key, err)
	}

	data, ok := values[0].(string)
	if !ok {
		return nil, false, nil
	}

	lastUpdated, _ := values[1].(string)
	versionStr, _ := values[2].(string)
	version, err := strconv.ParseInt(versionStr, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("redis read %s: bad version %q: %w", key, versionStr, err)
	}

	record, err := withMetadata(json.RawMessage(data), Metadata{LastUpdated: lastUpdated, Version: version})
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func (s *RedisStore) Write(ctx context.Context, userID string, data json.RawMessage) (Metadata, error) {
	if err := validateObject(data); err != nil {
		return Metadata{}, err
	}

	key := s.recordKey(userID)
	lastUpdated := s.clock.stamp()

	version, err := writeScript.Run(ctx, s.client,
		[]string{key, s.indexKey()},
		string(data), lastUpdated, userID,
	).Int64()
	if err != nil {
		s.logger.Error("Redis write failed",
			infralogger.String("redis_key", key),
			infralogger.Error(err),
		)
		return Metadata{}, fmt.Errorf("redis write %s: %w", key, err)
	}

	s.logger.Debug("Stored record",
		infralogger.String("redis_key", key),
		infralogger.Int64("version", version),
	)

	return Metadata{LastUpdated: lastUpdated, Version: version}, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore implements Store on Redis. Each record is a JSON envelope
// carrying its own expiry timestamp; the key TTL bounds physical lifetime
// while reads enforce the logical expiry.
type RedisStore struct {
	client *redis.Client
}

type redisEnvelope struct {
	Data   []byte    `json:"data"`
	Expiry time.Time `json:"expiry"`
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Create stores a new envelope under a fresh token.
func (s *RedisStore) Create(ctx context.Context, data []byte, expiry time.Time) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if err := s.write(ctx, token, data, expiry); err != nil {
		return "", err
	}
	return token, nil
}

// Load fetches a live envelope, treating logically expired records as
// absent.
func (s *RedisStore) Load(ctx context.Context, token string) ([]byte, time.Time, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrNoSession
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("session: load: %w", err)
	}
	var env redisEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("session: load: decode: %w", err)
	}
	if !env.Expiry.After(time.Now()) {
		return nil, time.Time{}, ErrNoSession
	}
	return env.Data, env.Expiry, nil
}

// Save upserts the envelope for token.
func (s *RedisStore) Save(ctx context.Context, token string, data []byte, expiry time.Time) error {
	return s.write(ctx, token, data, expiry)
}

// Delete removes the envelope for token.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// DeleteExpired scans the session keyspace and removes envelopes whose
// logical expiry has passed. Redis TTLs usually get there first; the scan
// covers records written with a skewed clock or an over-long TTL.
func (s *RedisStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("session: delete expired: %w", err)
		}
		var env redisEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}
		if env.Expiry.After(before) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return deleted, fmt.Errorf("session: delete expired: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("session: delete expired: scan: %w", err)
	}
	return deleted, nil
}

func (s *RedisStore) write(ctx context.Context, token string, data []byte, expiry time.Time) error {
	payload, err := json.Marshal(redisEnvelope{Data: data, Expiry: expiry.UTC()})
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	ttl := time.Until(expiry)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, redisKeyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

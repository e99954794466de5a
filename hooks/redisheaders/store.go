// Package redisheaders serves per-identity JWT headers out of Redis.
//
// Each identity owns one hash at "<prefix>:<identity>". Field names are header
// names and field values are JSON documents, so numbers, lists and objects
// survive the round trip. Loader plugs the store into an Engine as its headers
// loader.
//
// # Architecture boundaries
//
// This package only reads and writes header hashes. It does not sign tokens,
// and it never decides precedence: that stays with goToken.ComposeHeaders.
package redisheaders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/value"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps any Redis command failure.
	ErrRedisUnavailable = errors.New("header store redis unavailable")
	// ErrUnsupportedIdentity is returned when an identity has no key form.
	ErrUnsupportedIdentity = errors.New("identity cannot be used as a header store key")
	// ErrCorruptHeader is returned when a stored field does not decode as JSON.
	ErrCorruptHeader = errors.New("header store holds a value that is not JSON")
)

// Store keeps header hashes in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store using prefix for its keys ("gth" when empty).
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "gth"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(identity string) string {
	return s.prefix + ":" + identity
}

// Set replaces the headers stored for identity. A positive ttl expires the
// whole hash; zero keeps it until Delete.
func (s *Store) Set(ctx context.Context, identity string, headers map[string]any, ttl time.Duration) error {
	fields := make(map[string]any, len(headers))
	for name, h := range headers {
		v, err := value.Of(h)
		if err != nil {
			return fmt.Errorf("header %q: %w", name, err)
		}
		fields[name] = v.String()
	}

	key := s.key(identity)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes every header stored for identity.
func (s *Store) Delete(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the headers stored for identity, or an empty map.
func (s *Store) Get(ctx context.Context, identity string) (map[string]any, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}

	headers := make(map[string]any, len(fields))
	for name, raw := range fields {
		v, err := value.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrCorruptHeader, name, err)
		}
		headers[name] = v
	}
	return headers, nil
}

// Loader adapts the store to goToken.HeadersLoader. The identity must be a
// string, an integer or a fmt.Stringer.
func (s *Store) Loader() goToken.HeadersLoader {
	return func(ctx context.Context, identity any) (map[string]any, error) {
		id, err := identityKey(identity)
		if err != nil {
			return nil, err
		}
		return s.Get(ctx, id)
	}
}

func identityKey(identity any) (string, error) {
	switch x := identity.(type) {
	case string:
		if x == "" {
			return "", ErrUnsupportedIdentity
		}
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case fmt.Stringer:
		return identityKey(x.String())
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedIdentity, identity)
	}
}

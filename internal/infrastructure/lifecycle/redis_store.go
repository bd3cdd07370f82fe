package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/decision"
)

const (
	recordKeyPrefix = "claims:toolcall:"
	lockKeyPrefix   = "claims:lock:toolcall:"
)

// RedisStore keeps lifecycle records in Redis so decisions survive restarts and
// are serialized across replicas through a redsync mutex per call id.
type RedisStore struct {
	client  redis.UniversalClient
	rs      *redsync.Redsync
	ttl     time.Duration
	lockTTL time.Duration
	log     zerolog.Logger
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client redis.UniversalClient, ttl, lockTTL time.Duration, log zerolog.Logger) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &RedisStore{
		client:  client,
		rs:      redsync.New(goredis.NewPool(client)),
		ttl:     ttl,
		lockTTL: lockTTL,
		log:     log.With().Str("component", "lifecycle-redis").Logger(),
	}
}

// NewRedisClient parses a comma separated list of redis URLs or addresses and pings the server.
func NewRedisClient(ctx context.Context, redisURL, password string, db int) (redis.UniversalClient, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}
	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	if len(opts.Addrs) > 1 {
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}
		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
	}
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no redis addresses provided")
	}
	return opts, nil
}

func (s *RedisStore) Create(ctx context.Context, record *decision.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, recordKey(record.CallID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create lifecycle record: %w", err)
	}
	if !created {
		return decision.ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, callID string) (*decision.Record, error) {
	data, err := s.client.Get(ctx, recordKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, decision.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lifecycle record: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) GetMany(ctx context.Context, callIDs []string) (map[string]*decision.Record, error) {
	out := make(map[string]*decision.Record, len(callIDs))
	if len(callIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(callIDs))
	for i, id := range callIDs {
		keys[i] = recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get lifecycle records: %w", err)
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		record, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out[callIDs[i]] = record
	}
	return out, nil
}

// Save overwrites an existing record and keeps its expiry.
func (s *RedisStore) Save(ctx context.Context, record *decision.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	updated, err := s.client.SetXX(ctx, recordKey(record.CallID), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("save lifecycle record: %w", err)
	}
	if !updated {
		return decision.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, callID string) (func(), error) {
	mutex := s.rs.NewMutex(lockKeyPrefix+callID, redsync.WithExpiry(s.lockTTL))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("lock tool call %s: %w", callID, err)
	}
	return func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			s.log.Error().Err(err).Str("call_id", callID).Msg("failed to unlock tool call")
		}
	}, nil
}

// Ping reports whether redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func recordKey(callID string) string {
	return recordKeyPrefix + callID
}

var _ decision.Store = (*RedisStore)(nil)

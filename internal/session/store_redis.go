package session

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, key string, ttl time.Duration) *RedisStore {
	if strings.TrimSpace(key) == "" {
		key = "annan:session"
	}
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*Payload, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Save(ctx context.Context, payload *Payload) error {
	if payload == nil {
		return fmt.Errorf("cannot save nil session payload")
	}
	payload.UpdatedAt = time.Now()
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, raw, s.ttl).Err()
}

// ParseRedisURL은 redis:// 또는 rediss:// URL을 클라이언트 옵션으로 변환.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported redis scheme %q", u.Scheme)
	}
	opts := &redis.Options{Addr: u.Host}
	if u.Port() == "" {
		opts.Addr = u.Hostname() + ":6379"
	}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", db, err)
		}
		opts.DB = n
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opts, nil
}

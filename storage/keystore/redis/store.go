package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomo-portal/core/session"
)

// Store keeps the credentials under two redis keys, written and removed in a single transaction.
type Store struct {
	client *redis.Client
	prefix string
}

var _ session.Repository = (*Store)(nil)

// Open connects to redis and checks the connection.
func Open(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", addr)
	}
	return client, nil
}

func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) keys() []string {
	keys := make([]string, len(session.Keys))
	for i, k := range session.Keys {
		keys[i] = s.key(k)
	}
	return keys
}

func (s *Store) Load(ctx context.Context) (session.Credentials, error) {
	vals, err := s.client.MGet(ctx, s.keys()...).Result()
	if err != nil {
		return session.Credentials{}, errors.Wrap(err, "loading session from redis")
	}

	values := make(map[string]string, len(vals))
	for i, val := range vals {
		if str, ok := val.(string); ok {
			values[session.Keys[i]] = str
		}
	}
	return session.DecodeCredentials(values)
}

func (s *Store) Save(ctx context.Context, creds session.Credentials) error {
	values, err := creds.Encode()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	return errors.Wrap(err, "saving session to redis")
}

func (s *Store) Clear(ctx context.Context) error {
	return errors.Wrap(s.client.Del(ctx, s.keys()...).Err(), "clearing session from redis")
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rolelink/internal/config"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rolelink:session:"

// Redis keeps slots in a shared Redis so several web processes can serve one flow.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, conf config.SessionConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, ttl: conf.TTL}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Put(ctx context.Context, sid, linkID string) error {
	data, err := json.Marshal(slot{LinkID: linkID})
	if err != nil {
		return err
	}
	if err = r.client.Set(ctx, redisKeyPrefix+sid, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Arm(ctx context.Context, sid string) (string, error) {
	key := redisKeyPrefix + sid
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSlot
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	var s slot
	if err = json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("decode slot: %w", err)
	}
	state, err := NewState()
	if err != nil {
		return "", err
	}
	s.State = state
	if data, err = json.Marshal(s); err != nil {
		return "", err
	}
	if err = r.client.SetArgs(ctx, key, data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSlot
		}
		return "", fmt.Errorf("redis set: %w", err)
	}
	return state, nil
}

func (r *Redis) Take(ctx context.Context, sid, state string) (Pass, error) {
	data, err := r.client.GetDel(ctx, redisKeyPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pass{}, ErrNoSlot
	}
	if err != nil {
		return Pass{}, fmt.Errorf("redis getdel: %w", err)
	}
	var s slot
	if err = json.Unmarshal(data, &s); err != nil {
		return Pass{}, fmt.Errorf("decode slot: %w", err)
	}
	return redeem(s, state)
}

// Package rediscache provides Redis-backed implementations of the replay
// cache and ACK state map for hosts that run more than one process and need
// that shared state to be visible across them. The in-process equivalents
// (pkg/replay, pkg/ack) remain the default for a single-process host.
package rediscache

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/securelegion/shield-core/pkg/ack"
	"github.com/securelegion/shield-core/pkg/config"
	"github.com/securelegion/shield-core/pkg/crypto/primitives"
)

// ReplayCache is a Redis-backed replay cache keyed by (sender_pub,
// blake3(frame)), using SETNX-with-TTL for an atomic first-observation
// check across processes.
type ReplayCache struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

// NewReplayCache connects to Redis and verifies the connection with a Ping.
func NewReplayCache(cfg config.RedisConfig) (*ReplayCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("hostadapters/rediscache: connect: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	log.Println("hostadapters/rediscache: replay cache connected")
	return &ReplayCache{client: client, ctx: ctx, ttl: ttl}, nil
}

// Observe records one observation of frame from senderPub and reports
// whether this is the first time the pair has been seen, matching
// pkg/replay.Cache.Observe's contract.
func (c *ReplayCache) Observe(senderPub [32]byte, frame []byte) (bool, error) {
	frameHash := primitives.Blake3Sum256(frame)
	key := fmt.Sprintf("replay:%s:%s", hex.EncodeToString(senderPub[:]), hex.EncodeToString(frameHash[:]))

	ok, err := c.client.SetNX(c.ctx, key, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("hostadapters/rediscache: observe: %w", err)
	}
	return ok, nil
}

// Close closes the underlying Redis connection.
func (c *ReplayCache) Close() error {
	return c.client.Close()
}

// AckStore is a Redis-backed per-contact ACK state map, enforcing the same
// PING_ACK⇒PONG_ACK⇒MESSAGE_ACK ordering as pkg/ack.Map across processes via
// a Lua script that checks the prerequisite stage and sets the new one
// atomically.
type AckStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewAckStore connects to Redis and verifies the connection with a Ping.
func NewAckStore(cfg config.RedisConfig) (*AckStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("hostadapters/rediscache: connect: %w", err)
	}

	log.Println("hostadapters/rediscache: ack store connected")
	return &AckStore{client: client, ctx: ctx}, nil
}

var recordScript = redis.NewScript(`
local key = KEYS[1]
local stage = tonumber(ARGV[1])
if stage == 1 then
	redis.call("HSET", key, "ping", 1)
	return 1
end
if stage == 2 then
	if redis.call("HGET", key, "ping") ~= "1" then
		return 0
	end
	redis.call("HSET", key, "pong", 1)
	return 1
end
if stage == 3 then
	if redis.call("HGET", key, "pong") ~= "1" then
		return 0
	end
	redis.call("HSET", key, "message", 1)
	return 1
end
return 0
`)

// Record attempts to transition contact into stage, returning
// ack.ErrOutOfOrder if the prerequisite stage has not been observed.
func (s *AckStore) Record(contact string, stage ack.Stage) error {
	key := fmt.Sprintf("ack:%s", contact)
	ok, err := recordScript.Run(s.ctx, s.client, []string{key}, int(stage)).Int()
	if err != nil {
		return fmt.Errorf("hostadapters/rediscache: record: %w", err)
	}
	if ok == 0 {
		return ack.ErrOutOfOrder
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *AckStore) Close() error {
	return s.client.Close()
}

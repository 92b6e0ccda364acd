/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership provides Redis-lease leader election so that a
// replicated node deployment has exactly one block author.
package leadership

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultElectionKey     = "blessd:leader:producer"
	defaultLeaseDuration   = 15 * time.Second
	defaultRenewalInterval = 5 * time.Second
	defaultRetryInterval   = 2 * time.Second
)

// releaseScript deletes the lease only when this instance still holds it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the lease only when this instance still holds it.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// ElectionConfig configures leader election behavior.
type ElectionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ElectionKey is the Redis key used for the lease.
	ElectionKey string

	// LeaseDuration is how long the leader lease is valid.
	LeaseDuration time.Duration

	// RenewalInterval is how often the leader renews its lease.
	RenewalInterval time.Duration

	// RetryInterval is how often followers attempt to become leader.
	RetryInterval time.Duration

	// InstanceID uniquely identifies this instance.
	InstanceID string
}

// DefaultConfig returns default election configuration.
func DefaultConfig() ElectionConfig {
	return ElectionConfig{
		RedisAddr:       "localhost:6379",
		ElectionKey:     defaultElectionKey,
		LeaseDuration:   defaultLeaseDuration,
		RenewalInterval: defaultRenewalInterval,
		RetryInterval:   defaultRetryInterval,
		InstanceID:      uuid.New().String(),
	}
}

// Election manages distributed leader election over a Redis lease.
type Election struct {
	client     *redis.Client
	logger     zerolog.Logger
	config     ElectionConfig
	instanceID string

	mu       sync.Mutex
	isLeader bool
	cancel   context.CancelFunc
	leaderCh chan bool
}

// NewElection creates a leader election manager and verifies the Redis
// connection.
func NewElection(config ElectionConfig, logger zerolog.Logger) (*Election, error) {
	if config.ElectionKey == "" {
		config.ElectionKey = defaultElectionKey
	}
	if config.LeaseDuration == 0 {
		config.LeaseDuration = defaultLeaseDuration
	}
	if config.RenewalInterval == 0 {
		config.RenewalInterval = defaultRenewalInterval
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = defaultRetryInterval
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.New().String()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info().
		Str("redis_addr", config.RedisAddr).
		Str("instance_id", config.InstanceID).
		Msg("connected to redis for leader election")

	return &Election{
		client:     client,
		logger:     logger.With().Str("component", "leader_election").Logger(),
		config:     config,
		instanceID: config.InstanceID,
		leaderCh:   make(chan bool, 1),
	}, nil
}

// Start begins campaigning for leadership in the background.
func (e *Election) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)
	go e.campaign(ctx)
	return nil
}

// Stop releases leadership and stops campaigning.
func (e *Election) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if e.IsLeader() {
		if err := releaseScript.Run(ctx, e.client, []string{e.config.ElectionKey}, e.instanceID).Err(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to release leadership lease")
		}
		e.setLeader(false)
	}
	return e.client.Close()
}

// IsLeader reports whether this instance currently holds the lease.
func (e *Election) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLeader
}

// LeaderCh delivers leadership transitions.
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

func (e *Election) campaign(ctx context.Context) {
	ticker := time.NewTicker(e.config.RetryInterval)
	defer ticker.Stop()

	for {
		if e.IsLeader() {
			e.renewLoop(ctx)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		ok, err := e.client.SetNX(ctx, e.config.ElectionKey, e.instanceID, e.config.LeaseDuration).Result()
		if err != nil && ctx.Err() == nil {
			e.logger.Warn().Err(err).Msg("leadership acquisition failed")
		}
		if ok {
			e.logger.Info().Msg("acquired leadership")
			e.setLeader(true)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// renewLoop keeps the lease alive until it is lost or ctx ends.
func (e *Election) renewLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.RenewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := renewScript.Run(ctx, e.client,
			[]string{e.config.ElectionKey},
			e.instanceID, e.config.LeaseDuration.Milliseconds()).Int()
		if err != nil && ctx.Err() == nil {
			e.logger.Warn().Err(err).Msg("lease renewal failed")
			continue
		}
		if n == 0 {
			e.logger.Warn().Msg("lost leadership lease")
			e.setLeader(false)
			return
		}
	}
}

func (e *Election) setLeader(leader bool) {
	e.mu.Lock()
	changed := e.isLeader != leader
	e.isLeader = leader
	e.mu.Unlock()
	if changed {
		select {
		case e.leaderCh <- leader:
		default:
		}
	}
}

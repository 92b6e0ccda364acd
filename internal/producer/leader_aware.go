/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package producer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/events"
	"github.com/blesschain/blessd/internal/leadership"
)

// LeaderAwareLoop runs the production loop only while this instance
// holds the leadership lease, so a replicated deployment never has two
// concurrent block authors.
type LeaderAwareLoop struct {
	loop     *Loop
	election *leadership.Election
	bus      *events.Bus
	logger   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewLeaderAware wraps a production loop with leadership gating.
func NewLeaderAware(loop *Loop, election *leadership.Election, bus *events.Bus, logger zerolog.Logger) *LeaderAwareLoop {
	return &LeaderAwareLoop{
		loop:     loop,
		election: election,
		bus:      bus,
		logger:   logger.With().Str("component", "leader_aware_producer").Logger(),
	}
}

// Run campaigns for leadership and drives the loop accordingly until
// the context is cancelled.
func (la *LeaderAwareLoop) Run(ctx context.Context) error {
	la.logger.Info().Msg("leader-aware producer started")
	if err := la.election.Start(ctx); err != nil {
		return err
	}
	defer func() {
		la.stopLoop()
		if err := la.election.Stop(); err != nil {
			la.logger.Warn().Err(err).Msg("election shutdown failed")
		}
	}()

	if la.election.IsLeader() {
		la.startLoop(ctx)
	}

	leaderCh := la.election.LeaderCh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case isLeader := <-leaderCh:
			if isLeader {
				la.logger.Info().Msg("became leader, starting production")
				la.bus.Publish(events.EventLeaderAcquired, events.Payload{})
				la.startLoop(ctx)
			} else {
				la.logger.Warn().Msg("lost leadership, stopping production")
				la.bus.Publish(events.EventLeaderLost, events.Payload{})
				la.stopLoop()
			}
		}
	}
}

// Status proxies the wrapped loop's status.
func (la *LeaderAwareLoop) Status() Status {
	return la.loop.Status()
}

func (la *LeaderAwareLoop) startLoop(parent context.Context) {
	la.mu.Lock()
	defer la.mu.Unlock()
	if la.running {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	la.cancel = cancel
	la.running = true

	go func() {
		err := la.loop.Run(ctx)
		if err != nil && ctx.Err() == nil {
			// Persistence failures must halt the whole process, not
			// just this goroutine.
			la.logger.Fatal().Err(err).Msg("production loop failed")
		}
	}()
}

func (la *LeaderAwareLoop) stopLoop() {
	la.mu.Lock()
	defer la.mu.Unlock()
	if !la.running {
		return
	}
	la.cancel()
	la.running = false
}

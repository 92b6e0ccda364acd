/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule computes block-production deadlines from persisted
// schedule state, the configured interval, and the pause-window policy.
package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/chain"
	"github.com/blesschain/blessd/internal/clock"
	"github.com/blesschain/blessd/internal/pause"
)

// State is the durable schedule record: the last slot a block was
// committed (or abandoned) for and when production last advanced.
type State struct {
	LastSlotIndex  uint64
	LastProducedAt time.Time
}

// Slot is one scheduled opportunity to produce a block. Indices are
// strictly increasing and never reused; an abandoned slot keeps its
// index with ProducedAt left nil.
type Slot struct {
	Index       uint64
	ScheduledAt time.Time
	ProducedAt  *time.Time
}

// Engine computes the next slot deadline. It is stateless between
// calls; all durable inputs arrive through State.
type Engine struct {
	interval time.Duration
	policy   *pause.Policy
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewEngine constructs a schedule engine.
func NewEngine(interval time.Duration, policy *pause.Policy, clk clock.Clock, logger zerolog.Logger) *Engine {
	return &Engine{
		interval: interval,
		policy:   policy,
		clock:    clk,
		logger:   logger.With().Str("component", "schedule_engine").Logger(),
	}
}

// Interval returns the configured production interval.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// NextDeadline computes the slot following the persisted state. The
// candidate deadline is last production plus the interval; a candidate
// inside a pause window jumps straight to the window's end rather than
// accumulating a backlog of missed slots. Calling NextDeadline twice
// with the same state yields the same slot.
func (e *Engine) NextDeadline(last State) Slot {
	candidate := last.LastProducedAt.Add(e.interval)
	if e.policy.IsPaused(candidate) {
		resumed := e.policy.NextUnpaused(candidate)
		e.logger.Debug().
			Time("candidate", candidate).
			Time("resumed", resumed).
			Msg("candidate deadline inside pause window, skipping ahead")
		candidate = resumed
	}
	return Slot{
		Index:       last.LastSlotIndex + 1,
		ScheduledAt: candidate,
	}
}

// SeedState builds first-boot state when no persisted record exists.
// The chain head timestamp anchors scheduling when a head is available;
// otherwise the current wall clock does.
func (e *Engine) SeedState(ctx context.Context, heads chain.HeadReader) State {
	if heads != nil {
		head, err := heads.CurrentHead(ctx)
		if err == nil && !head.Timestamp.IsZero() {
			e.logger.Info().
				Uint64("height", head.Height).
				Time("timestamp", head.Timestamp).
				Msg("seeding schedule state from chain head")
			return State{LastSlotIndex: 0, LastProducedAt: head.Timestamp}
		}
		if err != nil {
			e.logger.Warn().Err(err).Msg("chain head unavailable, seeding from wall clock")
		}
	}
	now := e.clock.Now()
	e.logger.Info().Time("timestamp", now).Msg("seeding schedule state from wall clock")
	return State{LastSlotIndex: 0, LastProducedAt: now}
}

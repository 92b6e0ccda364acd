/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package producer drives block production: it waits for each slot
// deadline computed by the schedule engine, invokes the authority
// collaborator, and records the outcome durably before advancing.
package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/chain"
	"github.com/blesschain/blessd/internal/clock"
	"github.com/blesschain/blessd/internal/events"
	"github.com/blesschain/blessd/internal/pause"
	"github.com/blesschain/blessd/internal/schedule"
	"github.com/blesschain/blessd/internal/schedule/state"
	"github.com/blesschain/blessd/internal/telemetry"
)

// Phase is a state of the production loop's state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseWaiting    Phase = "waiting"
	PhaseAttempting Phase = "attempting"
	PhaseCommitted  Phase = "committed"
	PhaseFailed     Phase = "failed"
)

var allPhases = []string{
	string(PhaseIdle), string(PhaseWaiting), string(PhaseAttempting),
	string(PhaseCommitted), string(PhaseFailed),
}

// Config bounds the retry behavior of failed production attempts. The
// retry budget and backoff curve are deliberately configuration, not
// constants.
type Config struct {
	// AttemptTimeout bounds one AttemptProduce call. Zero defaults to
	// the block interval.
	AttemptTimeout time.Duration

	// RetryInitial is the first backoff delay after a failed attempt.
	RetryInitial time.Duration

	// RetryMaxInterval caps the exponential backoff delay.
	RetryMaxInterval time.Duration

	// RetryBudget is the maximum number of attempts per slot before the
	// slot is abandoned.
	RetryBudget uint64
}

func (c Config) withDefaults(interval time.Duration) Config {
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = interval
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 500 * time.Millisecond
	}
	if c.RetryMaxInterval <= 0 {
		c.RetryMaxInterval = 30 * time.Second
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = 5
	}
	return c
}

// Status is a snapshot of the loop for the ops API.
type Status struct {
	Phase          Phase     `json:"phase"`
	SlotIndex      uint64    `json:"slot_index"`
	NextDeadline   time.Time `json:"next_deadline"`
	LastSlotIndex  uint64    `json:"last_slot_index"`
	LastProducedAt time.Time `json:"last_produced_at"`
	Paused         bool      `json:"paused"`
}

// Loop is the block production loop. Exactly one production attempt is
// in flight at any time; the state machine structure enforces it
// without a lock around the authority call.
type Loop struct {
	engine    *schedule.Engine
	store     *state.Store
	policy    *pause.Policy
	authority chain.Authority
	heads     chain.HeadReader
	clock     clock.Clock
	bus       *events.Bus
	cfg       Config
	logger    zerolog.Logger

	mu    sync.Mutex
	phase Phase
	slot  schedule.Slot
	last  schedule.State
}

// New constructs the production loop.
func New(engine *schedule.Engine, store *state.Store, policy *pause.Policy,
	authority chain.Authority, heads chain.HeadReader, clk clock.Clock,
	bus *events.Bus, cfg Config, logger zerolog.Logger) *Loop {
	return &Loop{
		engine:    engine,
		store:     store,
		policy:    policy,
		authority: authority,
		heads:     heads,
		clock:     clk,
		bus:       bus,
		cfg:       cfg.withDefaults(engine.Interval()),
		logger:    logger.With().Str("component", "producer").Logger(),
		phase:     PhaseIdle,
	}
}

// Run executes the loop until the context is cancelled. Persistence
// failures are returned as errors and must halt the process; running
// with unknown schedule state risks duplicate or skipped production.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info().Msg("block production loop started")

	st, err := l.store.Load(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		seeded := l.engine.SeedState(ctx, l.heads)
		if err := l.store.Store(ctx, seeded); err != nil {
			return fmt.Errorf("persist seed state: %w", err)
		}
		telemetry.ScheduleStateWritesTotal.Inc()
		st = &seeded
	}
	l.setState(PhaseIdle, schedule.Slot{}, *st)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info().Msg("block production loop stopped")
			return err
		}

		slot := l.engine.NextDeadline(*st)
		if err := l.waitForSlot(ctx, &slot); err != nil {
			l.logger.Info().Msg("block production loop stopped")
			return err
		}

		handle, err := l.attempt(ctx, slot)
		if err != nil && ctx.Err() != nil {
			l.logger.Info().Msg("block production loop stopped")
			return ctx.Err()
		}

		if err != nil {
			next, serr := l.abandon(ctx, slot, *st, err)
			if serr != nil {
				return serr
			}
			st = &next
			continue
		}

		producedAt := l.clock.Now()
		next := schedule.State{LastSlotIndex: slot.Index, LastProducedAt: producedAt}
		// Write-then-advance: the durable write precedes any further
		// deadline computation so a crash re-attempts instead of
		// silently skipping the slot.
		if serr := l.store.Store(ctx, next); serr != nil {
			return fmt.Errorf("persist schedule state: %w", serr)
		}
		telemetry.ScheduleStateWritesTotal.Inc()
		slot.ProducedAt = &producedAt
		st = &next
		l.setState(PhaseCommitted, slot, next)
		telemetry.SlotsProducedTotal.Inc()
		l.bus.Publish(events.EventSlotCommitted, events.Payload{
			"slot":        slot.Index,
			"height":      handle.Height,
			"hash":        handle.Hash.String(),
			"produced_at": producedAt,
		})
		l.logger.Info().
			Uint64("slot", slot.Index).
			Uint64("height", handle.Height).
			Str("hash", handle.Hash.String()).
			Msg("block committed")
	}
}

// waitForSlot sleeps until the slot deadline, then re-checks the pause
// policy against the actual wake time. The deadline computed earlier is
// not trusted: the process may have been suspended long enough for a
// window to open in the meantime.
func (l *Loop) waitForSlot(ctx context.Context, slot *schedule.Slot) error {
	for {
		l.setPhase(PhaseWaiting, *slot)
		if err := l.waitUntil(ctx, slot.ScheduledAt); err != nil {
			return err
		}
		now := l.clock.Now()
		if !l.policy.IsPaused(now) {
			return nil
		}
		resume := l.policy.NextUnpaused(now)
		telemetry.PauseSkipsTotal.Inc()
		l.bus.Publish(events.EventPauseSkip, events.Payload{
			"slot":      slot.Index,
			"resume_at": resume,
		})
		l.logger.Info().
			Uint64("slot", slot.Index).
			Time("resume_at", resume).
			Msg("woke inside pause window, deferring slot")
		slot.ScheduledAt = resume
	}
}

// waitUntil blocks until the clock reaches t or the context is done.
func (l *Loop) waitUntil(ctx context.Context, t time.Time) error {
	for {
		d := t.Sub(l.clock.Now())
		if d <= 0 {
			return ctx.Err()
		}
		timer := l.clock.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}

// attempt invokes the authority with bounded retries. The slot index
// never advances here; the same slot is retried until success, a
// permanent rejection, or the retry budget runs out. Backoff delays
// run on the injected clock so retry pacing is as deterministic under
// test as every other wait in the loop.
func (l *Loop) attempt(ctx context.Context, slot schedule.Slot) (chain.BlockHandle, error) {
	l.setPhase(PhaseAttempting, slot)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.cfg.RetryInitial
	bo.MaxInterval = l.cfg.RetryMaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	for attempt := uint64(1); ; attempt++ {
		handle, err := l.attemptOnce(ctx, slot)
		if err == nil {
			return handle, nil
		}
		if ctx.Err() != nil {
			return chain.BlockHandle{}, ctx.Err()
		}
		var perr *chain.ProductionError
		if errors.As(err, &perr) && !perr.Transient {
			return chain.BlockHandle{}, err
		}
		if attempt >= l.cfg.RetryBudget {
			return chain.BlockHandle{}, err
		}

		delay := bo.NextBackOff()
		telemetry.ProductionRetriesTotal.Inc()
		l.bus.Publish(events.EventSlotRetry, events.Payload{
			"slot":    slot.Index,
			"error":   err.Error(),
			"backoff": delay.String(),
		})
		l.logger.Warn().
			Err(err).
			Uint64("slot", slot.Index).
			Dur("backoff", delay).
			Msg("block production attempt failed, retrying")

		timer := l.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return chain.BlockHandle{}, ctx.Err()
		case <-timer.C():
		}
	}
}

// attemptOnce runs a single bounded production attempt.
func (l *Loop) attemptOnce(ctx context.Context, slot schedule.Slot) (chain.BlockHandle, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, l.cfg.AttemptTimeout)
	defer cancel()

	spanCtx, span := telemetry.StartSpan(attemptCtx, "producer", "AttemptProduce")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"slot": slot.Index})

	start := time.Now()
	h, err := l.authority.AttemptProduce(spanCtx, slot.Index)
	telemetry.ProductionAttemptDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		return h, nil
	}
	if errors.Is(err, chain.ErrSlotAlreadyProduced) {
		// A crash after commit but before the state write; the block
		// exists, so treat the slot as produced.
		l.logger.Warn().Uint64("slot", slot.Index).Msg("slot already produced, recovering")
		return h, nil
	}
	telemetry.RecordError(span, err)
	return chain.BlockHandle{}, err
}

// abandon gives up on a slot after the retry budget, advancing the
// index with no produced block. The persisted timestamp moves to the
// slot deadline (never backwards) so the following slot still honors
// the interval.
func (l *Loop) abandon(ctx context.Context, slot schedule.Slot, prev schedule.State, cause error) (schedule.State, error) {
	ts := prev.LastProducedAt
	if slot.ScheduledAt.After(ts) {
		ts = slot.ScheduledAt
	}
	next := schedule.State{LastSlotIndex: slot.Index, LastProducedAt: ts}
	if err := l.store.Store(ctx, next); err != nil {
		return schedule.State{}, fmt.Errorf("persist schedule state: %w", err)
	}
	telemetry.ScheduleStateWritesTotal.Inc()
	l.setState(PhaseFailed, slot, next)
	telemetry.SlotsAbandonedTotal.Inc()
	l.bus.Publish(events.EventSlotAbandoned, events.Payload{
		"slot":  slot.Index,
		"error": cause.Error(),
	})
	l.logger.Warn().
		Err(cause).
		Uint64("slot", slot.Index).
		Uint64("attempts", l.cfg.RetryBudget).
		Msg("slot abandoned after exhausting retry budget")
	return next, nil
}

// Status returns a snapshot for the ops API.
func (l *Loop) Status() Status {
	l.mu.Lock()
	phase, slot, last := l.phase, l.slot, l.last
	l.mu.Unlock()
	return Status{
		Phase:          phase,
		SlotIndex:      slot.Index,
		NextDeadline:   slot.ScheduledAt,
		LastSlotIndex:  last.LastSlotIndex,
		LastProducedAt: last.LastProducedAt,
		Paused:         l.policy.IsPaused(l.clock.Now()),
	}
}

func (l *Loop) setPhase(p Phase, slot schedule.Slot) {
	l.mu.Lock()
	l.phase = p
	l.slot = slot
	l.mu.Unlock()
	telemetry.SetProducerPhase(string(p), allPhases)
}

func (l *Loop) setState(p Phase, slot schedule.Slot, last schedule.State) {
	l.mu.Lock()
	l.phase = p
	l.slot = slot
	l.last = last
	l.mu.Unlock()
	telemetry.SetProducerPhase(string(p), allPhases)
}

/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus mirrors in-process producer events onto NATS
// subjects so external operator tooling can observe slot lifecycle
// without an RPC surface on the node.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/events"
)

// subjectPrefix namespaces all published subjects.
const subjectPrefix = "blessd.events."

// bridgedEvents are the bus events forwarded to NATS.
var bridgedEvents = []events.EventType{
	events.EventSlotCommitted,
	events.EventSlotRetry,
	events.EventSlotAbandoned,
	events.EventPauseSkip,
	events.EventLeaderAcquired,
	events.EventLeaderLost,
}

// Config contains NATS connection configuration.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns default NATS configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "blessd",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Bridge forwards bus events to NATS.
type Bridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
	subs   map[events.EventType]events.Subscriber
}

// NewBridge connects to NATS and subscribes to the bridged bus events.
func NewBridge(cfg Config, bus *events.Bus, logger zerolog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	b := &Bridge{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "nats_bridge").Logger(),
		subs:   make(map[events.EventType]events.Subscriber),
	}
	for _, et := range bridgedEvents {
		b.subs[et] = bus.Subscribe(et)
	}

	b.logger.Info().Str("url", cfg.URL).Msg("nats event bridge connected")
	return b, nil
}

// Run forwards events until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for et, sub := range b.subs {
		wg.Add(1)
		go func(et events.EventType, sub events.Subscriber) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					b.publish(et, payload)
				}
			}
		}(et, sub)
	}
	wg.Wait()
	return ctx.Err()
}

func (b *Bridge) publish(et events.EventType, payload events.Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn().Err(err).Str("event", string(et)).Msg("failed to encode event")
		return
	}
	if err := b.conn.Publish(subjectPrefix+string(et), data); err != nil {
		b.logger.Warn().Err(err).Str("event", string(et)).Msg("failed to publish event")
	}
}

// Close drains the connection.
func (b *Bridge) Close() error {
	for et, sub := range b.subs {
		b.bus.Unsubscribe(et, sub)
	}
	if err := b.conn.Drain(); err != nil {
		return err
	}
	return nil
}

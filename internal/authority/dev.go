/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package authority provides the in-process development authority. It
// stands in for the real consensus component so a dev chain authors
// blocks without signing keys, peers, or a ledger backend.
package authority

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/chain"
	"github.com/blesschain/blessd/internal/clock"
)

// Dev is a deterministic block assembler. Each produced block chains
// the parent hash, the new height, and the slot index. It is rejecting
// per slot: a repeated attempt for the last produced slot returns
// chain.ErrSlotAlreadyProduced rather than a duplicate block.
type Dev struct {
	clock  clock.Clock
	logger zerolog.Logger

	mu       sync.Mutex
	head     chain.Head
	lastSlot uint64
}

// NewDev creates a dev authority anchored at a genesis timestamp.
func NewDev(chainID string, genesis time.Time, clk clock.Clock, logger zerolog.Logger) *Dev {
	genesisHash := sha256.Sum256([]byte("blesschain-genesis:" + chainID))
	return &Dev{
		clock:  clk,
		logger: logger.With().Str("component", "dev_authority").Logger(),
		head: chain.Head{
			Height:    0,
			Hash:      genesisHash,
			Timestamp: genesis.UTC(),
		},
	}
}

// AttemptProduce assembles the next block for the slot.
func (d *Dev) AttemptProduce(ctx context.Context, slotIndex uint64) (chain.BlockHandle, error) {
	if err := ctx.Err(); err != nil {
		return chain.BlockHandle{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastSlot != 0 && slotIndex == d.lastSlot {
		return chain.BlockHandle{}, chain.ErrSlotAlreadyProduced
	}
	if d.lastSlot != 0 && slotIndex < d.lastSlot {
		return chain.BlockHandle{}, chain.ErrStaleSlot
	}

	height := d.head.Height + 1
	now := d.clock.Now()

	var buf [8 + 8]byte
	binary.BigEndian.PutUint64(buf[0:8], height)
	binary.BigEndian.PutUint64(buf[8:16], slotIndex)
	hasher := sha256.New()
	hasher.Write(d.head.Hash[:])
	hasher.Write(buf[:])
	var hash chain.Hash
	copy(hash[:], hasher.Sum(nil))

	handle := chain.BlockHandle{
		Height:    height,
		Hash:      hash,
		Parent:    d.head.Hash,
		Timestamp: now,
	}
	d.head = chain.Head{Height: height, Hash: hash, Timestamp: now}
	d.lastSlot = slotIndex

	d.logger.Debug().
		Uint64("height", height).
		Uint64("slot", slotIndex).
		Str("hash", hash.String()).
		Msg("dev block assembled")

	return handle, nil
}

// CurrentHead returns the latest assembled block.
func (d *Dev) CurrentHead(ctx context.Context) (chain.Head, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.head, nil
}

/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package chain defines the narrow interfaces the scheduler uses to
// talk to the consensus-authority and ledger components. The scheduler
// never signs, gossips, or mutates chain state itself.
package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Hash is a 32-byte block hash.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Head is the externally owned record of the latest committed block.
type Head struct {
	Height    uint64
	Hash      Hash
	Timestamp time.Time
}

// BlockHandle identifies a block assembled for a slot.
type BlockHandle struct {
	Height    uint64
	Hash      Hash
	Parent    Hash
	Timestamp time.Time
}

// Authority assembles and finalizes a block for a slot. Implementations
// must be idempotent or rejecting per height: calling AttemptProduce
// again for a slot that already produced a block must either return the
// same handle or ErrSlotAlreadyProduced, never a duplicate block.
type Authority interface {
	AttemptProduce(ctx context.Context, slotIndex uint64) (BlockHandle, error)
}

// HeadReader exposes read-only access to the current chain head. The
// scheduler uses it only to seed first-boot schedule state.
type HeadReader interface {
	CurrentHead(ctx context.Context) (Head, error)
}

// ErrSlotAlreadyProduced is returned by a rejecting Authority when the
// requested slot already has a committed block. The scheduler treats it
// as success so a crash between commit and state write heals itself.
var ErrSlotAlreadyProduced = errors.New("slot already produced")

// ErrStaleSlot is returned when the requested slot index is behind the
// authority's committed height by more than one, which indicates the
// caller's schedule state is corrupt.
var ErrStaleSlot = errors.New("stale slot index")

// ProductionError wraps a failure reported by the authority
// collaborator. Transient failures are retried with backoff; permanent
// ones abandon the slot immediately.
type ProductionError struct {
	Reason    string
	Transient bool
	Err       error
}

func (e *ProductionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("block production failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("block production failed (%s)", e.Reason)
}

func (e *ProductionError) Unwrap() error { return e.Err }

// Transient builds a retryable production error.
func Transient(reason string, err error) *ProductionError {
	return &ProductionError{Reason: reason, Transient: true, Err: err}
}

// Permanent builds a non-retryable production error.
func Permanent(reason string, err error) *ProductionError {
	return &ProductionError{Reason: reason, Transient: false, Err: err}
}

/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/db"
	"github.com/blesschain/blessd/internal/schedule"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.Connect(db.BackendSQLite, filepath.Join(t.TempDir(), "scheduler.db"))
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	store, err := NewStore(gdb, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestLoadFirstBootReturnsNil(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st != nil {
		t.Fatalf("expected nil state on first boot, got %+v", st)
	}
}

func TestStoreRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := schedule.State{
		LastSlotIndex:  17,
		LastProducedAt: time.Date(2026, time.January, 5, 12, 0, 7, 0, time.UTC),
	}
	if err := store.Store(ctx, want); err != nil {
		t.Fatalf("store: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected persisted state, got nil")
	}
	if got.LastSlotIndex != want.LastSlotIndex {
		t.Errorf("slot index = %d, want %d", got.LastSlotIndex, want.LastSlotIndex)
	}
	if !got.LastProducedAt.Equal(want.LastProducedAt) {
		t.Errorf("produced at %s, want %s", got.LastProducedAt, want.LastProducedAt)
	}
}

func TestStoreOverwritesForward(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	for i := uint64(1); i <= 3; i++ {
		st := schedule.State{LastSlotIndex: i, LastProducedAt: base.Add(time.Duration(i) * 7 * time.Second)}
		if err := store.Store(ctx, st); err != nil {
			t.Fatalf("store slot %d: %v", i, err)
		}
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LastSlotIndex != 3 {
		t.Errorf("slot index = %d, want 3", got.LastSlotIndex)
	}
}

func TestStoreRejectsRegression(t *testing.T) {
	base := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		next schedule.State
	}{
		{
			name: "slot index regression",
			next: schedule.State{LastSlotIndex: 4, LastProducedAt: base.Add(time.Minute)},
		},
		{
			name: "timestamp regression",
			next: schedule.State{LastSlotIndex: 6, LastProducedAt: base.Add(-time.Second)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()

			if err := store.Store(ctx, schedule.State{LastSlotIndex: 5, LastProducedAt: base}); err != nil {
				t.Fatalf("store: %v", err)
			}
			err := store.Store(ctx, tt.next)
			if !errors.Is(err, ErrRegression) {
				t.Fatalf("store returned %v, want ErrRegression", err)
			}

			// The persisted record must be untouched.
			got, lerr := store.Load(ctx)
			if lerr != nil {
				t.Fatalf("load: %v", lerr)
			}
			if got.LastSlotIndex != 5 || !got.LastProducedAt.Equal(base) {
				t.Errorf("state after rejected write = %+v, want slot 5 at %s", got, base)
			}
		})
	}
}

func TestStoreAllowsSameIndexForwardTimestamp(t *testing.T) {
	// An abandoned slot and its successful re-attempt can share an
	// index as long as time never moves backwards.
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	if err := store.Store(ctx, schedule.State{LastSlotIndex: 5, LastProducedAt: base}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Store(ctx, schedule.State{LastSlotIndex: 5, LastProducedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("same-index forward write rejected: %v", err)
	}
}

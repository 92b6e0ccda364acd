/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/authority"
	"github.com/blesschain/blessd/internal/chainspec"
	"github.com/blesschain/blessd/internal/clock"
	"github.com/blesschain/blessd/internal/db"
	"github.com/blesschain/blessd/internal/events"
	"github.com/blesschain/blessd/internal/pause"
	"github.com/blesschain/blessd/internal/producer"
	"github.com/blesschain/blessd/internal/schedule"
	"github.com/blesschain/blessd/internal/schedule/state"
)

type node struct {
	clk    *clock.Manual
	loop   *producer.Loop
	cancel context.CancelFunc
	done   chan error
}

// startNode wires a full scheduler stack against the given database
// file, the way cmd/blessd does, with a manual clock.
func startNode(t *testing.T, dbPath string, clk *clock.Manual, spec chainspec.Spec) *node {
	t.Helper()
	logger := zerolog.Nop()

	gdb, err := db.Connect(db.BackendSQLite, dbPath)
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	store, err := state.NewStore(gdb, logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	windows, err := spec.Windows()
	if err != nil {
		t.Fatalf("spec windows: %v", err)
	}
	policy, err := pause.NewPolicy(windows)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	auth := authority.NewDev(spec.ID, spec.GenesisTimestamp, clk, logger)
	engine := schedule.NewEngine(spec.Interval(), policy, clk, logger)
	bus := events.NewBus()
	loop := producer.New(engine, store, policy, auth, auth, clk, bus, producer.Config{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	n := &node{clk: clk, loop: loop, cancel: cancel, done: make(chan error, 1)}
	go func() { n.done <- loop.Run(ctx) }()
	return n
}

func (n *node) stop(t *testing.T) {
	t.Helper()
	n.cancel()
	select {
	case <-n.done:
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// A restarted node picks up where the previous process stopped: the
// next slot is k+1, derived from the persisted record rather than the
// wall clock.
func TestRestartResumesSchedule(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scheduler.db")
	spec := chainspec.Dev()
	interval := spec.Interval()
	start := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)

	clk := clock.NewManual(start)
	first := startNode(t, dbPath, clk, spec)

	for i := uint64(1); i <= 2; i++ {
		waitFor(t, func() bool {
			st := first.loop.Status()
			return st.Phase == producer.PhaseWaiting && st.SlotIndex == i
		}, "first node never waited for its slot")
		clk.Advance(interval)
		waitFor(t, func() bool { return first.loop.Status().LastSlotIndex == i }, "slot never committed")
	}
	first.stop(t)

	// Restart later in wall time; the schedule continues from the
	// persisted state.
	restartClk := clock.NewManual(start.Add(2*interval + time.Second))
	second := startNode(t, dbPath, restartClk, spec)
	defer second.stop(t)

	waitFor(t, func() bool {
		st := second.loop.Status()
		return st.Phase == producer.PhaseWaiting && st.SlotIndex == 3
	}, "restarted node did not resume at slot 3")

	restartClk.Advance(interval)
	waitFor(t, func() bool { return second.loop.Status().LastSlotIndex == 3 }, "slot 3 never committed after restart")
}

// A node restarting inside a pause window defers production to the
// window end without consuming slot indices.
func TestRestartInsidePauseWindow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "scheduler.db")
	spec := chainspec.Local()

	// Last production late Friday; the process comes back Saturday noon,
	// inside the weekly window.
	friday := time.Date(2026, time.January, 2, 23, 59, 59, 0, time.UTC)
	gdb, err := db.Connect(db.BackendSQLite, dbPath)
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	store, err := state.NewStore(gdb, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Store(context.Background(), schedule.State{LastSlotIndex: 40, LastProducedAt: friday}); err != nil {
		t.Fatalf("persist state: %v", err)
	}
	if err := db.Close(gdb); err != nil {
		t.Fatalf("close db: %v", err)
	}

	clk := clock.NewManual(time.Date(2026, time.January, 3, 12, 0, 0, 0, time.UTC))
	n := startNode(t, dbPath, clk, spec)
	defer n.stop(t)

	resume := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
	waitFor(t, func() bool {
		st := n.loop.Status()
		return st.Phase == producer.PhaseWaiting && st.SlotIndex == 41 && st.NextDeadline.Equal(resume)
	}, "node did not defer slot 41 to the window end")

	clk.Set(resume)
	waitFor(t, func() bool { return n.loop.Status().LastSlotIndex == 41 }, "slot 41 never committed after the window")
}

/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import "time"

// Clock provides wall-clock time and timers to the scheduling core.
// The production loop never reads time.Now directly so deadline logic
// stays deterministic under test.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer fires once after its duration elapses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// System returns the real wall-clock implementation. All instants are
// normalized to UTC.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{t: time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (st systemTimer) C() <-chan time.Time { return st.t.C }

func (st systemTimer) Stop() bool { return st.t.Stop() }

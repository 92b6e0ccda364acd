/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package chainspec resolves named chain specifications. A spec carries
// the scheduling parameters of a chain: block interval, pause windows,
// and the genesis timestamp used to seed first-boot schedule state.
package chainspec

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blesschain/blessd/internal/pause"
)

const (
	// DefaultBlockInterval matches the chain's 7000 ms slot duration.
	DefaultBlockInterval = 7 * time.Second

	// MinBlockInterval is the historical 2 s default; anything shorter
	// outruns authority rotation.
	MinBlockInterval = 2 * time.Second
	MaxBlockInterval = 7 * time.Second
)

// WindowSpec is the textual pause-window form used in spec files.
type WindowSpec struct {
	StartDay  string `yaml:"start_day"`
	StartTime string `yaml:"start_time"`
	EndDay    string `yaml:"end_day"`
	EndTime   string `yaml:"end_time"`
	UTCOffset string `yaml:"utc_offset"`
}

// Spec describes one chain configuration.
type Spec struct {
	ID               string       `yaml:"id"`
	Name             string       `yaml:"name"`
	BlockInterval    int          `yaml:"block_interval_seconds"`
	GenesisTimestamp time.Time    `yaml:"genesis_timestamp"`
	PauseWindows     []WindowSpec `yaml:"pause_windows"`
}

// Dev is the instant-feedback development chain: short interval, no
// pause windows.
func Dev() Spec {
	return Spec{
		ID:               "dev",
		Name:             "BlessChain Development",
		BlockInterval:    2,
		GenesisTimestamp: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Local is the default local testnet: production interval plus the
// weekly Saturday quiescent window.
func Local() Spec {
	return Spec{
		ID:               "local",
		Name:             "BlessChain Local Testnet",
		BlockInterval:    7,
		GenesisTimestamp: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		PauseWindows: []WindowSpec{
			{
				StartDay:  "Saturday",
				StartTime: "00:00",
				EndDay:    "Sunday",
				EndTime:   "00:00",
				UTCOffset: "+00:00",
			},
		},
	}
}

// Load resolves a spec by built-in id ("dev", "local") or, failing
// that, by treating the argument as a YAML spec file path.
func Load(idOrPath string) (Spec, error) {
	switch idOrPath {
	case "", "dev":
		return Dev(), nil
	case "local":
		return Local(), nil
	}
	data, err := os.ReadFile(idOrPath)
	if err != nil {
		return Spec{}, fmt.Errorf("read chain spec %s: %w", idOrPath, err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, fmt.Errorf("parse chain spec %s: %w", idOrPath, err)
	}
	return spec, nil
}

// Interval returns the block interval as a duration, falling back to
// the chain default when the spec leaves it unset.
func (s Spec) Interval() time.Duration {
	if s.BlockInterval == 0 {
		return DefaultBlockInterval
	}
	return time.Duration(s.BlockInterval) * time.Second
}

// Windows parses the spec's pause windows.
func (s Spec) Windows() ([]pause.Window, error) {
	windows := make([]pause.Window, 0, len(s.PauseWindows))
	for i, ws := range s.PauseWindows {
		w, err := pause.ParseWindow(ws.StartDay, ws.StartTime, ws.EndDay, ws.EndTime, ws.UTCOffset)
		if err != nil {
			return nil, fmt.Errorf("pause window %d: %w", i, err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// Validate checks the spec before the node enters the production loop.
// Any error here is fatal at startup.
func (s Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("chain spec missing id")
	}
	if iv := s.Interval(); iv < MinBlockInterval || iv > MaxBlockInterval {
		return fmt.Errorf("block interval %s outside valid range [%s, %s]", iv, MinBlockInterval, MaxBlockInterval)
	}
	windows, err := s.Windows()
	if err != nil {
		return err
	}
	return pause.ValidateWindows(windows)
}

// Render returns the spec as YAML for operator inspection.
func (s Spec) Render() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

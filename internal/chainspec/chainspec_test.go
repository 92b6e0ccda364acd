/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package chainspec

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuiltinSpecsValidate(t *testing.T) {
	for _, id := range []string{"dev", "local"} {
		t.Run(id, func(t *testing.T) {
			spec, err := Load(id)
			if err != nil {
				t.Fatalf("load %s: %v", id, err)
			}
			if spec.ID != id {
				t.Errorf("spec id = %q, want %q", spec.ID, id)
			}
			if err := spec.Validate(); err != nil {
				t.Errorf("built-in spec %s failed validation: %v", id, err)
			}
		})
	}
}

func TestLoadDefaultsToDev(t *testing.T) {
	spec, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.ID != "dev" {
		t.Errorf("spec id = %q, want dev", spec.ID)
	}
}

func TestLocalSpecCarriesSaturdayWindow(t *testing.T) {
	spec := Local()
	if spec.Interval() != 7*time.Second {
		t.Errorf("local interval = %s, want 7s", spec.Interval())
	}
	windows, err := spec.Windows()
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("local spec has %d windows, want 1", len(windows))
	}
	if windows[0].StartDay != time.Saturday || windows[0].EndDay != time.Sunday {
		t.Errorf("window = %s, want Saturday to Sunday", windows[0])
	}
}

func TestLoadSpecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	contents := `id: staging
name: BlessChain Staging
block_interval_seconds: 5
genesis_timestamp: 2026-02-01T00:00:00Z
pause_windows:
  - start_day: Saturday
    start_time: "22:00"
    end_day: Sunday
    end_time: "02:00"
    utc_offset: "+02:00"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write spec file: %v", err)
	}

	spec, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.ID != "staging" {
		t.Errorf("spec id = %q, want staging", spec.ID)
	}
	if spec.Interval() != 5*time.Second {
		t.Errorf("interval = %s, want 5s", spec.Interval())
	}
	if err := spec.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
	windows, err := spec.Windows()
	if err != nil {
		t.Fatalf("windows: %v", err)
	}
	if len(windows) != 1 || windows[0].Offset != 2*3600 {
		t.Errorf("windows = %+v, want one window at +02:00", windows)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing spec file")
	}
}

func TestValidateRejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{
			name: "missing id",
			spec: Spec{BlockInterval: 7},
		},
		{
			name: "interval below minimum",
			spec: Spec{ID: "x", BlockInterval: 1},
		},
		{
			name: "interval above maximum",
			spec: Spec{ID: "x", BlockInterval: 8},
		},
		{
			name: "malformed pause window",
			spec: Spec{ID: "x", BlockInterval: 7, PauseWindows: []WindowSpec{
				{StartDay: "Funday", StartTime: "00:00", EndDay: "Sunday", EndTime: "00:00", UTCOffset: "UTC"},
			}},
		},
		{
			name: "overlapping pause windows",
			spec: Spec{ID: "x", BlockInterval: 7, PauseWindows: []WindowSpec{
				{StartDay: "Saturday", StartTime: "00:00", EndDay: "Sunday", EndTime: "00:00", UTCOffset: "UTC"},
				{StartDay: "Saturday", StartTime: "12:00", EndDay: "Saturday", EndTime: "14:00", UTCOffset: "UTC"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.spec.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRenderRoundtrip(t *testing.T) {
	rendered, err := Local().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	path := filepath.Join(t.TempDir(), "local.yaml")
	if err := os.WriteFile(path, []byte(rendered), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	spec, err := Load(path)
	if err != nil {
		t.Fatalf("load rendered spec: %v", err)
	}
	if spec.ID != "local" || spec.Interval() != 7*time.Second {
		t.Errorf("rendered spec roundtrip lost fields: %+v", spec)
	}
}

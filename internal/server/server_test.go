/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/blesschain/blessd/internal/producer"
)

type fakeStatus struct {
	status producer.Status
}

func (f fakeStatus) Status() producer.Status { return f.status }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New("dev", fakeStatus{status: producer.Status{
		Phase:        producer.PhaseWaiting,
		SlotIndex:    9,
		NextDeadline: time.Date(2026, time.January, 5, 12, 0, 7, 0, time.UTC),
	}}, zerolog.Nop())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["chain"] != "dev" {
		t.Errorf("chain field = %v, want dev", body["chain"])
	}
}

func TestStatusReportsProducerSnapshot(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status producer.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.Phase != producer.PhaseWaiting {
		t.Errorf("phase = %q, want waiting", status.Phase)
	}
	if status.SlotIndex != 9 {
		t.Errorf("slot index = %d, want 9", status.SlotIndex)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}

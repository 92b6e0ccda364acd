/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package state persists the schedule record the production loop
// depends on for crash recovery. The record is tiny and written in a
// single transaction so a crash can never expose partial state.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/blesschain/blessd/internal/schedule"
	"github.com/blesschain/blessd/internal/telemetry"
)

// recordID is the primary key of the single schedule-state row.
const recordID = 1

// Record is the durable schedule-state row.
type Record struct {
	ID             uint      `gorm:"primaryKey"`
	LastSlotIndex  uint64    `gorm:"not null"`
	LastProducedAt time.Time `gorm:"not null"`
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM.
func (Record) TableName() string {
	return "schedule_state"
}

// ErrRegression is returned when a write would move the persisted
// state backwards. The loop treats any store failure as fatal.
var ErrRegression = errors.New("schedule state regression")

// Store reads and writes the persisted schedule state.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a schedule state store and migrates its table.
func NewStore(db *gorm.DB, logger zerolog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate schedule state: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "schedule_state").Logger(),
	}, nil
}

// Load returns the persisted state, or nil when no record exists yet
// (first boot).
func (s *Store) Load(ctx context.Context) (*schedule.State, error) {
	var rec Record
	err := s.db.WithContext(ctx).First(&rec, "id = ?", recordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule state: %w", err)
	}
	return &schedule.State{
		LastSlotIndex:  rec.LastSlotIndex,
		LastProducedAt: rec.LastProducedAt.UTC(),
	}, nil
}

// Store durably writes the state in one transaction. Writes that would
// decrease the slot index or move last_produced_at backwards are
// rejected with ErrRegression; the persisted timestamp is monotonically
// non-decreasing across writes.
func (s *Store) Store(ctx context.Context, st schedule.State) error {
	ctx, span := telemetry.StartSpan(ctx, "schedule_state", "Store")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"slot": st.LastSlotIndex})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec Record
		err := tx.First(&rec, "id = ?", recordID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = Record{ID: recordID}
		case err != nil:
			return err
		default:
			if st.LastSlotIndex < rec.LastSlotIndex {
				return fmt.Errorf("%w: slot index %d < persisted %d", ErrRegression, st.LastSlotIndex, rec.LastSlotIndex)
			}
			if st.LastProducedAt.Before(rec.LastProducedAt) {
				return fmt.Errorf("%w: produced_at %s < persisted %s", ErrRegression,
					st.LastProducedAt.Format(time.RFC3339Nano), rec.LastProducedAt.Format(time.RFC3339Nano))
			}
		}
		rec.LastSlotIndex = st.LastSlotIndex
		rec.LastProducedAt = st.LastProducedAt.UTC()
		return tx.Save(&rec).Error
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("store schedule state: %w", err)
	}
	s.logger.Debug().
		Uint64("slot", st.LastSlotIndex).
		Time("produced_at", st.LastProducedAt).
		Msg("schedule state persisted")
	return nil
}

// Package domain contains core business types and interfaces.
//
// This file defines the generation audit record. Audit inserts are
// best-effort: a failed insert never fails the generation it describes.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerationStatus is the terminal state of a generation attempt.
type GenerationStatus string

const (
	GenerationStatusSucceeded GenerationStatus = "succeeded"
	GenerationStatusDenied    GenerationStatus = "denied"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// GenerationAudit is one row of the usage-analytics log.
type GenerationAudit struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Action    ActionType
	Status    GenerationStatus
	Cost      int // credits actually debited (0 for denied/failed)
	CreatedAt time.Time
}

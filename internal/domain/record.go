package domain

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal result recorded for a delivery.
type Outcome string

const (
	OutcomeSent   Outcome = "SENT"
	OutcomeFailed Outcome = "FAILED"
)

func (o Outcome) String() string { return string(o) }

func (o Outcome) IsValid() bool {
	return o == OutcomeSent || o == OutcomeFailed
}

// SendRecord is an append-only log entry written exactly once per
// delivery that reached a terminal outcome. It is the evidence base
// the cooldown engine queries and is never updated.
type SendRecord struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	Recipient string  `gorm:"type:varchar(255);not null"`
	Category  string  `gorm:"type:varchar(100);not null"`
	DedupKey  string  `gorm:"type:varchar(255);not null"`
	Outcome   Outcome `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

func (r *SendRecord) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !r.Outcome.IsValid() {
		return fmt.Errorf("%w: invalid outcome %q", ErrValidation, r.Outcome)
	}
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a queued message.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions occur from s.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Priority bounds and the default applied when a producer sets none.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// DefaultMaxRetries bounds transport attempts at max_retries+1 total.
const DefaultMaxRetries = 3

// FailureReasonCooldown is stored in last_error when the cooldown
// engine denies a send. Cooldown denials are terminal, never retried.
const FailureReasonCooldown = "cooldown"

// Message is an outbound send intent held in the delivery queue until
// it reaches a terminal state. Terminal rows are retained for audit
// and for future cooldown checks, never deleted.
type Message struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Recipient      string `gorm:"type:varchar(255);not null"`
	Category       string `gorm:"type:varchar(100);not null"`
	DedupKey       string `gorm:"type:varchar(255);not null"`
	Priority       int    `gorm:"not null;default:5"`
	Subject        string `gorm:"type:varchar(500)"`
	Body           string `gorm:"type:text"`
	Status         Status `gorm:"type:varchar(20);not null"`
	RetryCount     int    `gorm:"not null;default:0"`
	MaxRetries     int    `gorm:"not null;default:3"`
	LastError      *string
	ScheduledFor   time.Time `gorm:"not null"`
	LeaseExpiresAt *time.Time
	SentAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (m *Message) Validate() error {
	if m.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if m.Category == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, m.Status)
	}
	if m.Priority < MinPriority || m.Priority > MaxPriority {
		return fmt.Errorf("%w: priority must be between %d and %d (got %d)", ErrValidation, MinPriority, MaxPriority, m.Priority)
	}
	return nil
}

// RetriesExhausted reports whether the message has consumed its retry
// budget; retry_count counts failed attempts beyond the first.
func (m *Message) RetriesExhausted() bool {
	maxRetries := m.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return m.RetryCount >= maxRetries
}

package repository

import (
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
)

// MessageModel is the persistence model for the outreach_messages table.
type MessageModel struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	Recipient      string        `gorm:"type:varchar(255);not null"`
	Category       string        `gorm:"type:varchar(100);not null"`
	DedupKey       string        `gorm:"type:varchar(255);not null"`
	Priority       int           `gorm:"not null;default:5"`
	Subject        string        `gorm:"type:varchar(500)"`
	Body           string        `gorm:"type:text"`
	Status         domain.Status `gorm:"type:varchar(20);not null"`
	RetryCount     int           `gorm:"not null;default:0"`
	MaxRetries     int           `gorm:"not null;default:3"`
	LastError      *string       `gorm:"type:text"`
	ScheduledFor   time.Time     `gorm:"type:timestamptz;not null"`
	LeaseExpiresAt *time.Time    `gorm:"type:timestamptz"`
	SentAt         *time.Time    `gorm:"type:timestamptz"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MessageModel) TableName() string {
	return "outreach_messages"
}

// SendRecordModel is the persistence model for send_records.
type SendRecordModel struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Recipient string         `gorm:"type:varchar(255);not null"`
	Category  string         `gorm:"type:varchar(100);not null"`
	DedupKey  string         `gorm:"type:varchar(255);not null"`
	Outcome   domain.Outcome `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
}

func (SendRecordModel) TableName() string {
	return "send_records"
}

func messageModelFromDomain(m *domain.Message) *MessageModel {
	if m == nil {
		return nil
	}

	return &MessageModel{
		ID:             m.ID,
		Recipient:      m.Recipient,
		Category:       m.Category,
		DedupKey:       m.DedupKey,
		Priority:       m.Priority,
		Subject:        m.Subject,
		Body:           m.Body,
		Status:         m.Status,
		RetryCount:     m.RetryCount,
		MaxRetries:     m.MaxRetries,
		LastError:      m.LastError,
		ScheduledFor:   m.ScheduledFor,
		LeaseExpiresAt: m.LeaseExpiresAt,
		SentAt:         m.SentAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:             m.ID,
		Recipient:      m.Recipient,
		Category:       m.Category,
		DedupKey:       m.DedupKey,
		Priority:       m.Priority,
		Subject:        m.Subject,
		Body:           m.Body,
		Status:         m.Status,
		RetryCount:     m.RetryCount,
		MaxRetries:     m.MaxRetries,
		LastError:      m.LastError,
		ScheduledFor:   m.ScheduledFor,
		LeaseExpiresAt: m.LeaseExpiresAt,
		SentAt:         m.SentAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func recordModelFromDomain(r *domain.SendRecord) *SendRecordModel {
	if r == nil {
		return nil
	}

	return &SendRecordModel{
		ID:        r.ID,
		Recipient: r.Recipient,
		Category:  r.Category,
		DedupKey:  r.DedupKey,
		Outcome:   r.Outcome,
		CreatedAt: r.CreatedAt,
	}
}

func recordModelToDomain(m *SendRecordModel) *domain.SendRecord {
	if m == nil {
		return nil
	}

	return &domain.SendRecord{
		ID:        m.ID,
		Recipient: m.Recipient,
		Category:  m.Category,
		DedupKey:  m.DedupKey,
		Outcome:   m.Outcome,
		CreatedAt: m.CreatedAt,
	}
}

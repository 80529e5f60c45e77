package provider

import (
	"context"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
)

// Provider is the outbound delivery port. The pipeline is agnostic to
// whether the other side is an email relay or a social-posting API.
type Provider interface {
	Deliver(ctx context.Context, message domain.Message) (*DeliveryResult, error)
}

// DeliveryResult stores transport call metadata for logging and audit.
type DeliveryResult struct {
	StatusCode int
	Body       string
	ExternalID string
}

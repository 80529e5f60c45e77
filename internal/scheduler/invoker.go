package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultInvokeTimeout = 2 * time.Minute

// Invoker fires a job's handler. The scheduler only records whether
// the invocation itself succeeded; job-specific outcomes stay with
// the handler.
type Invoker interface {
	Invoke(ctx context.Context, job domain.ScheduledJob) error
}

// HTTPInvoker posts to a job's endpoint with the shared cron secret.
type HTTPInvoker struct {
	client  *resty.Client
	baseURL string
	secret  string
}

func NewHTTPInvoker(baseURL, secret string) (*HTTPInvoker, error) {
	client := resty.New()
	client.SetTimeout(defaultInvokeTimeout)
	client.SetRetryCount(0)

	return NewHTTPInvokerWithClient(baseURL, secret, client)
}

func NewHTTPInvokerWithClient(baseURL, secret string, client *resty.Client) (*HTTPInvoker, error) {
	trimmedBase := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBase == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedBase); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("cron secret is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &HTTPInvoker{
		client:  client,
		baseURL: trimmedBase,
		secret:  secret,
	}, nil
}

func (i *HTTPInvoker) Invoke(ctx context.Context, job domain.ScheduledJob) error {
	if i == nil || i.client == nil {
		return fmt.Errorf("invoker is not initialized")
	}
	if strings.TrimSpace(job.Endpoint) == "" {
		return fmt.Errorf("job %q has no endpoint", job.Name)
	}

	response, err := i.client.R().
		SetContext(ctx).
		SetHeader("X-Cron-Secret", i.secret).
		SetQueryParam("secret", i.secret).
		Post(i.baseURL + job.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to invoke job %q: %w", job.Name, err)
	}

	if response.IsError() {
		return fmt.Errorf("job %q returned status %d", job.Name, response.StatusCode())
	}

	return nil
}

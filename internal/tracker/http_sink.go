package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"shopsignals/internal/events"
)

// HTTPSink forwards events to a remote ingestion endpoint as JSON, for
// storefronts whose collector runs on another host. The collector's
// POST /api/v1/events expects its private key as a bearer token.
type HTTPSink struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
}

func NewHTTPSink(endpoint, apiKey string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSink{endpoint: endpoint, apiKey: apiKey, timeout: timeout}
}

// Insert posts e to the endpoint. Any non-2xx status is an error.
func (s *HTTPSink) Insert(ctx context.Context, e *events.Event) error {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	agent := fiber.Post(s.endpoint).JSON(e).Timeout(timeout)
	if s.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+s.apiKey)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("posting event: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("posting event: status %d: %s", code, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

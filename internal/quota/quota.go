// Package quota talks to the external usage/quota service. Quota failures
// are always the caller's problem to log, never to propagate.
package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Reporter increments a user's upload-quota usage counter.
type Reporter interface {
	IncrementUploadCount(ctx context.Context, userID string) error
}

// HTTPReporter posts usage increments to the external usage service.
type HTTPReporter struct {
	baseURL string
	client  *http.Client
}

func NewHTTPReporter(baseURL string) *HTTPReporter {
	return &HTTPReporter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *HTTPReporter) IncrementUploadCount(ctx context.Context, userID string) error {
	body, err := json.Marshal(map[string]string{"userId": userID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/usage/uploads", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("usage service returned %d", resp.StatusCode)
	}
	return nil
}

// LogReporter is the dev fallback when no usage service is configured.
type LogReporter struct{}

func (LogReporter) IncrementUploadCount(_ context.Context, userID string) error {
	log.Printf("upload quota incremented for user %s", userID)
	return nil
}

// ForURL picks the HTTP reporter when a usage service is configured, the log
// fallback otherwise.
func ForURL(baseURL string) Reporter {
	if baseURL == "" {
		return LogReporter{}
	}
	return NewHTTPReporter(baseURL)
}

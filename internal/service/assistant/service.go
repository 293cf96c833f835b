// Package assistant is the server-side client for the voice assistant
// provider's REST API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no private key is available for
// server-side calls.
var ErrNotConfigured = errors.New("assistant provider not configured")

// UpstreamError carries the provider's status and response body so
// handlers can surface it as a gateway-style error.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("assistant provider returned %d: %s", e.Status, e.Detail)
}

// Service forwards chat requests to the provider. Tool-call round
// trips can take minutes, hence the long client timeout.
type Service struct {
	baseURL    string
	privateKey string
	client     *http.Client
}

// NewService builds the provider client.
func NewService(baseURL, privateKey string) *Service {
	return &Service{
		baseURL:    baseURL,
		privateKey: privateKey,
		client:     &http.Client{Timeout: 5 * time.Minute},
	}
}

// Configured reports whether server-side calls are possible.
func (s *Service) Configured() bool {
	return s.privateKey != ""
}

// SendChat forwards a raw chat payload to the provider and returns the
// provider's raw JSON response. Non-2xx responses become an
// *UpstreamError.
func (s *Service) SendChat(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.privateKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read assistant response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: string(body)}
	}
	return body, nil
}

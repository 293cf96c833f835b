// Package shortener is a client for the Shlink URL-shortening REST
// API.
package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bifrotek/voicebridge/internal/config"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("shortener service not configured")

// Service talks to a Shlink instance.
type Service struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewService builds the client from the runtime configuration.
func NewService(cfg config.ShortenerConfig) *Service {
	return &Service{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is present.
func (s *Service) Configured() bool {
	return s.apiKey != ""
}

// CreateRequest describes a short URL to create.
type CreateRequest struct {
	LongURL      string   `json:"longUrl"`
	Title        string   `json:"title,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CustomSlug   string   `json:"customSlug,omitempty"`
	Crawlable    bool     `json:"crawlable"`
	ForwardQuery bool     `json:"forwardQuery"`
}

// ShortURL is Shlink's representation of a shortened link.
type ShortURL struct {
	ShortURL    string         `json:"shortUrl"`
	ShortCode   string         `json:"shortCode"`
	LongURL     string         `json:"longUrl"`
	DateCreated string         `json:"dateCreated"`
	Title       string         `json:"title,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Visits      map[string]int `json:"visitsSummary,omitempty"`
}

// Create registers a new short URL.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ShortURL, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out ShortURL
	if err := s.do(ctx, http.MethodPost, "/short-urls", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches details for a short code.
func (s *Service) Get(ctx context.Context, shortCode string) (*ShortURL, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	var out ShortURL
	if err := s.do(ctx, http.MethodGet, "/short-urls/"+shortCode, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns up to limit short URLs.
func (s *Service) List(ctx context.Context, limit int) ([]ShortURL, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	var out struct {
		ShortURLs struct {
			Data []ShortURL `json:"data"`
		} `json:"shortUrls"`
	}
	path := fmt.Sprintf("/short-urls?page=1&itemsPerPage=%d", limit)
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.ShortURLs.Data, nil
}

// Delete removes a short URL by code.
func (s *Service) Delete(ctx context.Context, shortCode string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	return s.do(ctx, http.MethodDelete, "/short-urls/"+shortCode, nil, nil)
}

func (s *Service) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("shortener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("shortener returned %d: %s", resp.StatusCode, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode shortener response: %w", err)
	}
	return nil
}

// Package brand extracts a simple brand palette from a customer's
// website.
package brand

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bifrotek/voicebridge/internal/config"
)

var hexColorRe = regexp.MustCompile(`#[0-9a-fA-F]{6}\b`)

// Extractor fetches a page and derives a three-color palette from it.
type Extractor struct {
	client *http.Client
}

// NewExtractor builds an extractor with a short fetch timeout;
// palette extraction is best-effort.
func NewExtractor() *Extractor {
	return &Extractor{client: &http.Client{Timeout: 15 * time.Second}}
}

// NormalizeDomain lowercases and prefixes a bare domain with https://.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if !strings.HasPrefix(d, "http://") && !strings.HasPrefix(d, "https://") {
		d = "https://" + d
	}
	return d
}

// ExtractColors fetches the page at url and returns the three most
// frequent distinct hex colors found in its markup as primary,
// secondary and accent. Near-white and near-black are skipped since
// they are backgrounds, not brand colors. Missing slots fall back to
// the default palette.
func (e *Extractor) ExtractColors(ctx context.Context, url string) (config.BrandColors, error) {
	defaults := config.BrandColors{
		Primary:   config.DefaultPrimaryColor,
		Secondary: config.DefaultSecondaryColor,
		Accent:    config.DefaultAccentColor,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return defaults, err
	}
	req.Header.Set("User-Agent", "voicebridge-brand-extractor/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return defaults, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return defaults, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return defaults, fmt.Errorf("read %s: %w", url, err)
	}

	ranked := rankColors(string(body))
	palette := defaults
	if len(ranked) > 0 {
		palette.Primary = ranked[0]
	}
	if len(ranked) > 1 {
		palette.Secondary = ranked[1]
	}
	if len(ranked) > 2 {
		palette.Accent = ranked[2]
	}
	return palette, nil
}

// rankColors returns distinct hex colors by descending frequency, ties
// broken lexically for stable output.
func rankColors(markup string) []string {
	counts := make(map[string]int)
	for _, match := range hexColorRe.FindAllString(markup, -1) {
		color := strings.ToLower(match)
		if isBackgroundColor(color) {
			continue
		}
		counts[color]++
	}

	colors := make([]string, 0, len(counts))
	for color := range counts {
		colors = append(colors, color)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return colors[i] < colors[j]
	})
	return colors
}

// isBackgroundColor filters out colors too close to pure white or
// black.
func isBackgroundColor(color string) bool {
	switch color {
	case "#ffffff", "#fefefe", "#fafafa", "#f5f5f5", "#000000", "#010101", "#111111":
		return true
	}
	return false
}

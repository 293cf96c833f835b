package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrManagedEnvironment is returned when a save is attempted on a
// managed deployment where environment variables are controlled by the
// hosting platform rather than the env file.
var ErrManagedEnvironment = errors.New("environment variables are managed by the deployment platform")

// Default brand palette used when no colors were extracted or saved.
const (
	DefaultPrimaryColor   = "#4361ee"
	DefaultSecondaryColor = "#3a0ca3"
	DefaultAccentColor    = "#4cc9f0"
)

// Manager reads and writes runtime-editable configuration backed by a
// flat KEY=VALUE env file. Process environment variables always win on
// reads, so platform-injected values override the file.
type Manager struct {
	path    string
	managed bool
}

// NewManager builds a Manager for the given env file path. Managed
// mode is detected from MANAGED_ENV / COOLIFY_URL and makes all saves
// fail with ErrManagedEnvironment.
func NewManager(path string) *Manager {
	managed := os.Getenv("MANAGED_ENV") != "" || os.Getenv("COOLIFY_URL") != ""
	return &Manager{path: path, managed: managed}
}

// Managed reports whether the deployment platform owns configuration.
func (m *Manager) Managed() bool {
	return m.managed
}

// Get returns the value for key, preferring the process environment
// over the env file. Missing keys yield the empty string.
func (m *Manager) Get(key string) string {
	return m.GetDefault(key, "")
}

// GetDefault is Get with a fallback for absent or empty values.
func (m *Manager) GetDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	values, err := godotenv.Read(m.path)
	if err != nil {
		return fallback
	}
	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}
	return fallback
}

// SaveAll persists the given keys to the env file, rewriting it in
// place: existing KEY=VALUE lines are updated where the key matches,
// comments and unrelated lines are preserved, and new keys are
// appended. Empty values in updates are skipped.
func (m *Manager) SaveAll(updates map[string]string) error {
	if m.managed {
		return ErrManagedEnvironment
	}

	pending := make(map[string]string, len(updates))
	for key, value := range updates {
		if strings.TrimSpace(value) != "" {
			pending[key] = value
		}
	}
	if len(pending) == 0 {
		return errors.New("no data to save")
	}

	var lines []string
	if raw, err := os.ReadFile(m.path); err == nil {
		lines = strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read env file: %w", err)
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, _, found := strings.Cut(trimmed, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if value, ok := pending[key]; ok {
			lines[i] = key + "=" + value
			delete(pending, key)
		}
	}

	// Keys not present in the file yet go at the end.
	for key, value := range pending {
		lines = append(lines, key+"="+value)
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(m.path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}

// ProviderCredentials is the runtime view of the assistant provider's
// keys.
type ProviderCredentials struct {
	AssistantID string `json:"assistantId"`
	PublicKey   string `json:"publicKey"`
	PrivateKey  string `json:"-"`
}

// Complete reports whether the browser SDK can be initialized.
func (c ProviderCredentials) Complete() bool {
	return c.AssistantID != "" && c.PublicKey != ""
}

// Credentials returns the current provider credentials.
func (m *Manager) Credentials() ProviderCredentials {
	return ProviderCredentials{
		AssistantID: m.Get("ASSISTANT_ID"),
		PublicKey:   m.Get("PUBLIC_KEY"),
		PrivateKey:  m.Get("VAPI_PRIVATE_KEY"),
	}
}

// CompanyProfile is the customer-facing company configuration rendered
// into the public pages.
type CompanyProfile struct {
	CompanyName      string `json:"companyName"`
	WebsiteURL       string `json:"websiteUrl"`
	SupportEmail     string `json:"supportEmail"`
	ImpressumURL     string `json:"impressumUrl"`
	PrivacyPolicyURL string `json:"privacyPolicyUrl"`
	TermsURL         string `json:"termsUrl"`
	LogoURL          string `json:"logoUrl"`
}

// Company returns the current company profile.
func (m *Manager) Company() CompanyProfile {
	return CompanyProfile{
		CompanyName:      m.Get("COMPANY_NAME"),
		WebsiteURL:       m.Get("WEBSITE_URL"),
		SupportEmail:     m.Get("SUPPORT_EMAIL"),
		ImpressumURL:     m.Get("IMPRESSUM_URL"),
		PrivacyPolicyURL: m.Get("PRIVACY_POLICY_URL"),
		TermsURL:         m.Get("TERMS_URL"),
		LogoURL:          m.Get("LOGO_URL"),
	}
}

// BrandColors is the palette extracted from the customer's site.
type BrandColors struct {
	Primary   string `json:"primaryColor"`
	Secondary string `json:"secondaryColor"`
	Accent    string `json:"accentColor"`
}

// Colors returns the current palette, defaulting any unset slot.
func (m *Manager) Colors() BrandColors {
	return BrandColors{
		Primary:   m.GetDefault("PRIMARY_COLOR", DefaultPrimaryColor),
		Secondary: m.GetDefault("SECONDARY_COLOR", DefaultSecondaryColor),
		Accent:    m.GetDefault("ACCENT_COLOR", DefaultAccentColor),
	}
}

// ContactConfig holds optional manually-entered contact channels.
type ContactConfig struct {
	WhatsApp     string `json:"facebookBusinessWhatsApp"`
	CalendlyLink string `json:"calendlyLink"`
}

// Contact returns the current contact configuration.
func (m *Manager) Contact() ContactConfig {
	return ContactConfig{
		WhatsApp:     m.Get("FACEBOOK_BUSINESS_WHATSAPP"),
		CalendlyLink: m.Get("CALENDLY_LINK"),
	}
}

// ShortenerConfig holds the URL-shortener API settings.
type ShortenerConfig struct {
	APIKey  string
	BaseURL string
}

// Shortener returns the current URL-shortener configuration.
func (m *Manager) Shortener() ShortenerConfig {
	return ShortenerConfig{
		APIKey:  m.Get("SHLINK_API_KEY"),
		BaseURL: m.GetDefault("SHLINK_BASE_URL", "https://demo.bifrotek.com/rest/v3"),
	}
}

// Package configapi exposes the password-gated configuration API and
// the admin save endpoints.
package configapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bifrotek/voicebridge/internal/config"
	"github.com/bifrotek/voicebridge/internal/service/brand"
	"github.com/bifrotek/voicebridge/pkg/utils"
)

// Handler serves configuration reads and writes backed by the env-file
// manager.
type Handler struct {
	manager *config.Manager
	colors  *brand.Extractor
}

// New creates the config handler.
func New(manager *config.Manager, colors *brand.Extractor) *Handler {
	return &Handler{manager: manager, colors: colors}
}

// RegisterRoutes mounts the configuration endpoints. One authoritative
// handler per route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/secure-config", h.handleSecureConfig)
	r.Get("/api/config-status", h.handleConfigStatus)
	r.Post("/save-credentials", h.handleSaveCredentials)
	r.Post("/save-manual-inputs", h.handleSaveManualInputs)
	r.Post("/save-domain-analysis", h.handleSaveDomainAnalysis)
	r.Post("/api/analyze-domain", h.handleAnalyzeDomain)
}

func (h *Handler) handleSecureConfig(w http.ResponseWriter, r *http.Request) {
	password := r.URL.Query().Get("password")
	expected := h.manager.Get("CONFIG_PASSWORD")
	if expected == "" || password != expected {
		utils.RespondError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	creds := h.manager.Credentials()
	company := h.manager.Company()
	colors := h.manager.Colors()
	contact := h.manager.Contact()

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"assistantId":              creds.AssistantID,
		"publicKey":                creds.PublicKey,
		"facebookBusinessWhatsApp": contact.WhatsApp,
		"calendlyLink":             contact.CalendlyLink,
		"analyzedDomain":           h.manager.Get("ANALYZED_DOMAIN"),
		"companyName":              company.CompanyName,
		"websiteUrl":               company.WebsiteURL,
		"supportEmail":             company.SupportEmail,
		"impressumUrl":             company.ImpressumURL,
		"privacyPolicyUrl":         company.PrivacyPolicyURL,
		"termsUrl":                 company.TermsURL,
		"primaryColor":             colors.Primary,
		"secondaryColor":           colors.Secondary,
		"accentColor":              colors.Accent,
		"logoUrl":                  company.LogoURL,
	})
}

func (h *Handler) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	creds := h.manager.Credentials()
	environment := "local"
	if h.manager.Managed() {
		environment = "managed"
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"assistant_id_configured": creds.AssistantID != "",
		"public_key_configured":   creds.PublicKey != "",
		"config_complete":         creds.Complete(),
		"environment":             environment,
	})
}

func (h *Handler) handleSaveCredentials(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	assistantID := r.PostFormValue("assistant_id")
	publicKey := r.PostFormValue("public_key")
	if assistantID == "" || publicKey == "" {
		utils.RespondError(w, http.StatusBadRequest, "assistant_id and public_key are required")
		return
	}

	updates := map[string]string{
		"ASSISTANT_ID": assistantID,
		"PUBLIC_KEY":   publicKey,
	}
	if privateKey := r.PostFormValue("private_key"); privateKey != "" {
		updates["VAPI_PRIVATE_KEY"] = privateKey
	}

	h.respondSaveResult(w, h.manager.SaveAll(updates), "credentials saved successfully")
}

func (h *Handler) handleSaveManualInputs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	updates := map[string]string{
		"FACEBOOK_BUSINESS_WHATSAPP": r.PostFormValue("facebook_business_whatsapp"),
		"CALENDLY_LINK":              r.PostFormValue("calendly_link"),
	}

	h.respondSaveResult(w, h.manager.SaveAll(updates), "manual inputs saved successfully")
}

func (h *Handler) handleSaveDomainAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	updates := map[string]string{
		"ANALYZED_DOMAIN":    r.PostFormValue("analyzed_domain"),
		"COMPANY_NAME":       r.PostFormValue("company_name"),
		"WEBSITE_URL":        r.PostFormValue("website_url"),
		"SUPPORT_EMAIL":      r.PostFormValue("support_email"),
		"IMPRESSUM_URL":      r.PostFormValue("impressum_url"),
		"PRIVACY_POLICY_URL": r.PostFormValue("privacy_policy_url"),
		"TERMS_URL":          r.PostFormValue("terms_url"),
		"PRIMARY_COLOR":      r.PostFormValue("primary_color"),
		"SECONDARY_COLOR":    r.PostFormValue("secondary_color"),
		"ACCENT_COLOR":       r.PostFormValue("accent_color"),
		"LOGO_URL":           r.PostFormValue("logo_url"),
	}

	h.respondSaveResult(w, h.manager.SaveAll(updates), "domain analysis results saved successfully")
}

// handleAnalyzeDomain fetches the customer's site, derives a palette
// and persists it when the environment allows.
func (h *Handler) handleAnalyzeDomain(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	domain := r.PostFormValue("domain")
	if domain == "" {
		utils.RespondError(w, http.StatusBadRequest, "domain is required")
		return
	}
	cleanDomain := brand.NormalizeDomain(domain)

	palette, err := h.colors.ExtractColors(r.Context(), cleanDomain)
	if err != nil {
		// Extraction already fell back to the default palette.
		log.Printf("[config] color extraction failed for %s: %v", cleanDomain, err)
	}

	if !h.manager.Managed() {
		saveErr := h.manager.SaveAll(map[string]string{
			"ANALYZED_DOMAIN": cleanDomain,
			"WEBSITE_URL":     cleanDomain,
			"PRIMARY_COLOR":   palette.Primary,
			"SECONDARY_COLOR": palette.Secondary,
			"ACCENT_COLOR":    palette.Accent,
		})
		if saveErr != nil {
			log.Printf("[config] failed to save domain analysis: %v", saveErr)
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"domain":          cleanDomain,
		"website_url":     cleanDomain,
		"primary_color":   palette.Primary,
		"secondary_color": palette.Secondary,
		"accent_color":    palette.Accent,
	})
}

func (h *Handler) respondSaveResult(w http.ResponseWriter, err error, successMessage string) {
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": successMessage,
		})
	case errors.Is(err, config.ErrManagedEnvironment):
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "info",
			"message": "environment variables are managed by the deployment platform; update them there",
		})
	default:
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
	}
}

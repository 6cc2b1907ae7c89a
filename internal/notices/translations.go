// Package notices renders the short user-visible messages shown as toasts
// in the CMS and on the public site.
package notices

import (
	"embed"

	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Message ids.
const (
	CampaignSentAll       = "campaign_sent_all"
	CampaignPartial       = "campaign_partial"
	CampaignNothingToDo   = "campaign_nothing_to_do"
	CampaignInFlight      = "campaign_in_flight"
	CampaignInvalid       = "campaign_invalid"
	CampaignResolveFailed = "campaign_resolve_failed"
	ExportEmpty           = "export_empty"
	ExportReady           = "export_ready"
	BulkUpdated           = "bulk_updated"
	BulkNothingPending    = "bulk_nothing_pending"
	BulkFailed            = "bulk_failed"
	RegistrationReceived  = "registration_received"
	RegistrationDuplicate = "registration_duplicate"
	RegistrationClosed    = "registration_closed"
)

// Translator is a thin wrapper around go-i18n's Bundle.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	logger          *zap.Logger
}

// NewTranslator loads the embedded catalogues with defaultLocale as fallback.
func NewTranslator(defaultLocale string, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.fr.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Error("load notice catalogue failed", zap.String("file", file), zap.Error(err))
		}
	}
	return &Translator{bundle: bundle, defaultLanguage: tag, logger: logger}
}

// T renders key for the given Accept-Language value. data may carry a
// "Count" entry, which also selects the plural form.
func (t *Translator) T(acceptLanguage, key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	localizer := i18n.NewLocalizer(t.bundle, acceptLanguage, t.defaultLanguage.String())
	cfg := &i18n.LocalizeConfig{MessageID: key, TemplateData: data}
	if n, ok := data["Count"]; ok {
		cfg.PluralCount = n
	}
	msg, err := localizer.Localize(cfg)
	if err != nil {
		t.logger.Warn("localize failed", zap.String("key", key), zap.String("accept_language", acceptLanguage), zap.Error(err))
		return key
	}
	return msg
}

// For renders key in the language requested by the gin request.
func (t *Translator) For(c *gin.Context, key string, data map[string]any) string {
	return t.T(c.GetHeader("Accept-Language"), key, data)
}

package compose

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/hackhub-cms/backend/internal/models"
)

//go:embed envelope.html
var envelopeHTML string

// DefaultSignOff is appended when the body has no closing phrase.
const DefaultSignOff = "Best regards,<br>The Hack Hub Team"

var closingPhrases = []string{
	"best regards", "regards", "sincerely", "cheers", "thank you", "thanks", "see you",
}

// envelope output is not HTML-escaped: admin-authored bodies are trusted markup.
var envelopeTmpl = template.Must(template.New("envelope").
	Funcs(template.FuncMap{"mod": func(a, b int) int { return a % b }}).
	Parse(envelopeHTML))

// Envelope wraps a rendered body in the fixed HTML layout.
type Envelope struct {
	HeaderImageURL string
	SignOff        string // empty uses DefaultSignOff
}

// Wrap returns the full HTML document for body. Newlines in body become
// <br>; the sign-off is appended unless the body already closes itself;
// logos render as a footer grid when present.
func (e Envelope) Wrap(body string, logos []models.PartnerLogo) (string, error) {
	signOff := ""
	if !HasClosing(body) {
		signOff = e.SignOff
		if signOff == "" {
			signOff = DefaultSignOff
		}
	}
	var b strings.Builder
	err := envelopeTmpl.Execute(&b, struct {
		HeaderImageURL string
		Body           string
		SignOff        string
		Logos          []models.PartnerLogo
	}{
		HeaderImageURL: e.HeaderImageURL,
		Body:           strings.ReplaceAll(strings.TrimSpace(body), "\n", "<br>\n"),
		SignOff:        signOff,
		Logos:          visibleLogos(logos),
	})
	if err != nil {
		return "", fmt.Errorf("render envelope: %w", err)
	}
	return b.String(), nil
}

// HasClosing reports whether body already contains a closing phrase.
func HasClosing(body string) bool {
	lower := strings.ToLower(body)
	for _, p := range closingPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func visibleLogos(logos []models.PartnerLogo) []models.PartnerLogo {
	out := make([]models.PartnerLogo, 0, len(logos))
	for _, l := range logos {
		if l.ImageURL != "" {
			out = append(out, l)
		}
	}
	return out
}

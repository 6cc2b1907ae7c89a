// Package compose renders campaign and notification emails: token expansion,
// presets and the HTML envelope.
package compose

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMissingSubject = errors.New("subject is required")
	ErrMissingBody    = errors.New("content is required")
)

// Per-recipient tokens.
const (
	TokenName  = "name"
	TokenEmail = "email"
)

var tokenRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template is a subject/body pair that may contain {{token}} placeholders.
type Template struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate rejects templates with a blank subject or body.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return ErrMissingSubject
	}
	if strings.TrimSpace(t.Body) == "" {
		return ErrMissingBody
	}
	return nil
}

// Expand replaces every {{key}} with vars[key]. Unknown tokens are left
// verbatim and substituted values are never expanded again.
func Expand(t Template, vars map[string]string) Template {
	return Template{
		Subject: expandString(t.Subject, vars),
		Body:    expandString(t.Body, vars),
	}
}

// RecipientVars returns the token map for one recipient.
func RecipientVars(name, email string) map[string]string {
	return map[string]string{TokenName: name, TokenEmail: email}
}

func expandString(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		key := tok[2 : len(tok)-2]
		if v, ok := vars[key]; ok {
			return v
		}
		return tok
	})
}

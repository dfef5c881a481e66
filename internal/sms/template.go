package sms

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Usage says when a template is sent.
type Usage string

const (
	UsageActivation  Usage = "activation"
	UsageExpiration  Usage = "expiration"
	UsagePromotional Usage = "promotional"
	UsageOther       Usage = "other"
)

// Valid reports whether the usage is known.
func (u Usage) Valid() bool {
	switch u {
	case UsageActivation, UsageExpiration, UsagePromotional, UsageOther:
		return true
	}
	return false
}

// Template is a stored message body with text/template placeholders such as {{ .MemberName }}.
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Usage     Usage     `json:"usage"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the template fields and that the body parses.
func (t Template) Validate() error {
	if t.Name == "" {
		return shared.Validationf("template name required")
	}
	if !t.Usage.Valid() {
		return shared.Validationf("unknown template usage %q", t.Usage)
	}
	if _, err := parse(t); err != nil {
		return shared.Validationf("template body: %v", err)
	}
	return nil
}

func parse(t Template) (*template.Template, error) {
	return template.New(t.Name).Option("missingkey=zero").Parse(t.Body)
}

// Render executes the template against data.
func (t Template) Render(data any) (string, error) {
	tmpl, err := parse(t)
	if err != nil {
		return "", fmt.Errorf("sms: parse template %s: %w", t.Name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("sms: render template %s: %w", t.Name, err)
	}
	return buf.String(), nil
}

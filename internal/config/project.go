package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Project holds the backend project wiring shared by the server and its clients.
type Project struct {
	APIKey            string `env:"SUPPLYRUN_API_KEY"`
	AuthDomain        string `env:"SUPPLYRUN_AUTH_DOMAIN"`
	ProjectID         string `env:"SUPPLYRUN_PROJECT_ID"`
	StorageBucket     string `env:"SUPPLYRUN_STORAGE_BUCKET"`
	MessagingSenderID string `env:"SUPPLYRUN_MESSAGING_SENDER_ID"`
	AppID             string `env:"SUPPLYRUN_APP_ID"`
}

// ErrInvalidProject is wrapped by every error returned from Project.Validate.
var ErrInvalidProject = errors.New("invalid project configuration")

var apiKeyRe = regexp.MustCompile(`^[A-Za-z0-9_-]{32,64}$`)

func (p *Project) normalize() {
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.AuthDomain = strings.TrimSpace(p.AuthDomain)
	p.ProjectID = strings.TrimSpace(p.ProjectID)
	p.StorageBucket = strings.TrimSpace(p.StorageBucket)
	p.MessagingSenderID = strings.TrimSpace(p.MessagingSenderID)
	p.AppID = strings.TrimSpace(p.AppID)
}

func (p Project) fields() []struct{ name, value string } {
	return []struct{ name, value string }{
		{"SUPPLYRUN_API_KEY", p.APIKey},
		{"SUPPLYRUN_AUTH_DOMAIN", p.AuthDomain},
		{"SUPPLYRUN_PROJECT_ID", p.ProjectID},
		{"SUPPLYRUN_STORAGE_BUCKET", p.StorageBucket},
		{"SUPPLYRUN_MESSAGING_SENDER_ID", p.MessagingSenderID},
		{"SUPPLYRUN_APP_ID", p.AppID},
	}
}

func looksLikePlaceholder(v string) bool {
	return strings.Contains(v, "...") ||
		strings.Contains(strings.ToLower(v), "your-") ||
		strings.Contains(v, "YOUR_")
}

// Validate reports every missing, placeholder or malformed value at once.
// Callers treat a non-nil result as fatal.
func (p Project) Validate() error {
	p.normalize()

	var missing, placeholders []string
	for _, f := range p.fields() {
		switch {
		case f.value == "":
			missing = append(missing, f.name)
		case looksLikePlaceholder(f.value):
			placeholders = append(placeholders, f.name)
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("%w: missing %s", ErrInvalidProject, strings.Join(missing, ", ")))
	}
	if len(placeholders) > 0 {
		errs = append(errs, fmt.Errorf("%w: placeholder values in %s", ErrInvalidProject, strings.Join(placeholders, ", ")))
	}
	if p.APIKey != "" && !looksLikePlaceholder(p.APIKey) && !apiKeyRe.MatchString(p.APIKey) {
		errs = append(errs, fmt.Errorf("%w: SUPPLYRUN_API_KEY has an unexpected format", ErrInvalidProject))
	}
	return errors.Join(errs...)
}

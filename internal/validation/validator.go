package validation

import (
	"net/url"
	"strings"

	"wiki-quiz/internal/domain"
)

// Page bounds for GET /api/history.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// maxURLLength is the width of the quiz_entries.url column, counted in bytes.
const maxURLLength = 1000

// Validator provides request validation functionality
type Validator struct {
	allowedHosts []string
}

// NewValidator creates a new validator instance. An empty allowedHosts accepts any host.
func NewValidator(allowedHosts []string) *Validator {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Validator{allowedHosts: hosts}
}

// ValidateArticleURL checks the url of a generate request and returns it trimmed.
// The trimmed string is the reference key; no further normalization is applied.
func (v *Validator) ValidateArticleURL(raw string) (string, domain.ValidationErrors) {
	var errors domain.ValidationErrors

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		errors = append(errors, domain.NewMissingFieldError("url"))
		return "", errors
	}
	if len(trimmed) > maxURLLength {
		errors = append(errors, domain.NewOutOfRangeError("url", len(trimmed), 1, maxURLLength))
		return "", errors
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errors = append(errors, domain.NewInvalidFormatError("url", trimmed))
		return "", errors
	}

	if !v.hostAllowed(parsed.Hostname()) {
		errors = append(errors, domain.FieldError{
			Code:    domain.CodeInvalidFormat,
			Field:   "url",
			Message: "host is not allowed",
			Value:   parsed.Hostname(),
		})
		return "", errors
	}

	return trimmed, nil
}

// ValidatePage validates history pagination
func (v *Validator) ValidatePage(limit, offset int) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if limit <= 0 || limit > MaxLimit {
		errors = append(errors, domain.NewOutOfRangeError("limit", limit, 1, MaxLimit))
	}
	if offset < 0 {
		errors = append(errors, domain.FieldError{
			Code:    domain.CodeOutOfRange,
			Field:   "offset",
			Message: "value must not be negative",
			Value:   offset,
		})
	}

	return errors
}

// hostAllowed matches the host exactly or as a subdomain of an allowed host.
func (v *Validator) hostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range v.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

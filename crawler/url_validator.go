package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

type URLValidator struct {
	allowedSchemes []string
}

func NewURLValidator(config *FetcherConfig) *URLValidator {
	return &URLValidator{allowedSchemes: config.AllowedSchemes}
}

// Validate parses raw and accepts only absolute URLs with an allowed scheme
// and a host.
func (v *URLValidator) Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty link", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !slices.Contains(v.allowedSchemes, strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

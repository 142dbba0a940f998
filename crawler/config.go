package crawler

import (
	"time"
)

type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

type FetcherConfig struct {
	MaxAttempts     int
	RetryDelay      time.Duration
	RequestTimeout  time.Duration
	CacheSize       int
	MaxBodySize     int
	UserAgent       string
	ProxyURL        string
	Format          Format
	AllowedSchemes  []string
	BrowserFallback bool
}

// DefaultConfig returns the fetcher configuration used when nothing is overridden.
func DefaultConfig() *FetcherConfig {
	return &FetcherConfig{
		MaxAttempts:    5,
		RetryDelay:     500 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		CacheSize:      128,
		MaxBodySize:    10 * 1024 * 1024,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Format:         FormatText,
		AllowedSchemes: []string{"http", "https"},
	}
}

package search

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnsupportedSource = errors.New("search: unsupported source")

// Source is a result category a provider can be asked for.
type Source string

const (
	SourceWeb  Source = "web"
	SourceNews Source = "news"
)

func (s Source) Validate() error {
	switch s {
	case SourceWeb, SourceNews:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedSource, string(s))
}

type SearchResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  Source `json:"source"`
}

type Provider interface {
	Search(ctx context.Context, query string, source Source) ([]SearchResult, error)
}

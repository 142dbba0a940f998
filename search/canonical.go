package search

import (
	"strings"

	"github.com/nlnwa/whatwg-url/canonicalizer"
)

var linkParser = canonicalizer.New(
	canonicalizer.WithRemoveUserInfo(),
	canonicalizer.WithRemoveFragment(),
)

// CanonicalLink normalizes a result link so the same page found by different
// sources compares equal. Links that do not parse are returned trimmed.
func CanonicalLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := linkParser.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Href(true)
}

// Merge concatenates result lists in order, keeping the first result for each
// canonical link and dropping results without a link.
func Merge(lists ...[]SearchResult) []SearchResult {
	seen := make(map[string]struct{})
	var merged []SearchResult
	for _, list := range lists {
		for _, r := range list {
			key := CanonicalLink(r.Link)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
		}
	}
	return merged
}

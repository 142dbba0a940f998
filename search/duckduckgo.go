package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML results page. It needs no API key.
type DuckDuckGo struct {
	client    *http.Client
	baseURL   string
	userAgent string
	region    string
}

func NewDuckDuckGo(client *http.Client, baseURL, userAgent string) *DuckDuckGo {
	if client == nil {
		client = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DuckDuckGoURL
	}
	return &DuckDuckGo{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		region:    "wt-wt",
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, source Source) ([]SearchResult, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", d.region)
	if source == SourceNews {
		params.Set("iar", "news")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	var results []SearchResult
	doc.Find("div.result").Each(func(i int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		a := s.Find("a.result__a").First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		link := unwrapRedirect(href)
		if link == "" {
			return
		}
		results = append(results, SearchResult{
			Link:    link,
			Title:   strings.TrimSpace(a.Text()),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Source:  source,
		})
	})
	return results, nil
}

// unwrapRedirect turns a DuckDuckGo "/l/?uddg=" redirect into the target link.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

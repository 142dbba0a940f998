package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const SerpApiURL = "https://serpapi.com/search"

type SerpApiSearchEngine struct {
	client  *http.Client
	apiKey  string
	baseURL string
	num     int
}

type serpApiItem struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

type serpApiResponse struct {
	OrganicResults []serpApiItem `json:"organic_results"`
	NewsResults    []serpApiItem `json:"news_results"`
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	Error string `json:"error"`
}

func NewSerpApiSearchEngine(client *http.Client, apiKey, baseURL string) *SerpApiSearchEngine {
	if client == nil {
		client = &http.Client{}
	}
	if baseURL == "" {
		baseURL = SerpApiURL
	}
	return &SerpApiSearchEngine{
		client:  client,
		apiKey:  apiKey,
		baseURL: baseURL,
		num:     10,
	}
}

func (s *SerpApiSearchEngine) Search(ctx context.Context, query string, source Source) ([]SearchResult, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(s.num))
	if source == SourceNews {
		params.Set("tbm", "nws")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var searchResp serpApiResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if searchResp.Error != "" {
		return nil, fmt.Errorf("API error: %s", searchResp.Error)
	}

	items := searchResp.OrganicResults
	if source == SourceNews {
		items = searchResp.NewsResults
	}
	results := make([]SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, SearchResult{
			Link:    item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Source:  source,
		})
	}
	return results, nil
}

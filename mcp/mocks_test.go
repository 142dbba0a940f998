package mcp

import (
	"context"

	"linkmind/crawler"
)

type mockSearch struct {
	digest string
	err    error
	query  string
}

func (m *mockSearch) Search(_ context.Context, query string) (string, error) {
	m.query = query
	return m.digest, m.err
}

type mockOpener struct {
	pages map[string]*crawler.Page
}

func (m *mockOpener) Open(_ context.Context, link string) *crawler.Page {
	return m.pages[link]
}

type mockRetriever struct {
	out  string
	err  error
	topK int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, topK int) (string, error) {
	m.topK = topK
	return m.out, m.err
}

func newPorts() *Ports {
	return &Ports{
		Search:    &mockSearch{digest: "Title: A\nLink: https://a.example/\nContent: alpha\n\n"},
		Opener:    &mockOpener{pages: map[string]*crawler.Page{"https://a.example/": {Link: "https://a.example/", Content: "alpha"}}},
		Retriever: &mockRetriever{out: "alpha"},
	}
}

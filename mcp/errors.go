// Package mcp exposes the research tools over the Model Context Protocol.
package mcp

import "errors"

var (
	ErrMissingSearch    = errors.New("mcp: web search service is required")
	ErrMissingOpener    = errors.New("mcp: link opener is required")
	ErrMissingRetriever = errors.New("mcp: retrieval service is required")
)

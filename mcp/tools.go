package mcp

import (
	"context"
	"time"

	"linkmind/pkg/logging"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	ToolSearch   = "Search"
	ToolOpenLink = "OpenLink"
	ToolDBSearch = "DBSearch"
)

type SearchInput struct {
	Query string `json:"query" jsonschema:"the search term or question to query"`
}

type SearchOutput struct {
	Digest string `json:"digest"`
}

type OpenLinkInput struct {
	Link string `json:"link" jsonschema:"the URL of the webpage to extract content from"`
}

// OpenLinkOutput carries the page text. Content is null when the page had none.
type OpenLinkOutput struct {
	Content *string `json:"content"`
}

type DBSearchInput struct {
	Query string `json:"query" jsonschema:"what to look up in previously read pages"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (server default when unset)"`
}

type DBSearchOutput struct {
	Context string `json:"context"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolSearch,
		Description: "Performs a web search for the query and returns the title, link and content of the top results.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolOpenLink,
		Description: "Extracts the main text content of a webpage given its URL.",
	}, s.handleOpenLink)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolDBSearch,
		Description: "Searches the content of previously visited pages for passages relevant to the query.",
	}, s.handleDBSearch)
}

func (s *Server) begin(ctx context.Context, tool string) (context.Context, *zap.Logger) {
	ctx = logging.WithTool(logging.WithRequestID(ctx), tool)
	return ctx, logging.FromContext(ctx, s.logger)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	ctx, logger := s.begin(ctx, ToolSearch)
	start := time.Now()

	digest, err := s.ports.Search.Search(ctx, input.Query)
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		return nil, SearchOutput{}, err
	}
	logger.Info("tool call", zap.String("query", input.Query), zap.Duration("took", time.Since(start)))
	return nil, SearchOutput{Digest: digest}, nil
}

func (s *Server) handleOpenLink(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OpenLinkInput,
) (*mcp.CallToolResult, OpenLinkOutput, error) {
	ctx, logger := s.begin(ctx, ToolOpenLink)

	page := s.ports.Opener.Open(ctx, input.Link)
	logger.Info("tool call", zap.String("url", input.Link), zap.Bool("found", page != nil))
	if page == nil {
		return nil, OpenLinkOutput{}, nil
	}
	content := page.Content
	return nil, OpenLinkOutput{Content: &content}, nil
}

func (s *Server) handleDBSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DBSearchInput,
) (*mcp.CallToolResult, DBSearchOutput, error) {
	ctx, logger := s.begin(ctx, ToolDBSearch)

	out, err := s.ports.Retriever.Retrieve(ctx, input.Query, input.TopK)
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return nil, DBSearchOutput{}, err
	}
	logger.Info("tool call", zap.String("query", input.Query), zap.Int("top_k", input.TopK))
	return nil, DBSearchOutput{Context: out}, nil
}

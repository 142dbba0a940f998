package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"linkmind/pkg/logging"

	"go.uber.org/zap"
)

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Digest string `json:"digest"`
}

type OpenRequest struct {
	Link string `json:"link"`
}

type OpenResponse struct {
	Content *string `json:"content"`
}

type DBSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type DBSearchResponse struct {
	Context string `json:"context"`
}

func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	ctx := logging.WithRequestID(r.Context())
	digest, err := s.search.Search(ctx, req.Query)
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("search failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to search: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, SearchResponse{Digest: digest})
}

func (s *Server) OpenHandler(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Link) == "" {
		http.Error(w, "link is required", http.StatusBadRequest)
		return
	}

	ctx := logging.WithRequestID(r.Context())
	var resp OpenResponse
	if page := s.opener.Open(ctx, req.Link); page != nil {
		resp.Content = &page.Content
	}
	writeJSON(w, resp)
}

func (s *Server) DBSearchHandler(w http.ResponseWriter, r *http.Request) {
	var req DBSearchRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := logging.WithRequestID(r.Context())
	out, err := s.retriever.Retrieve(ctx, req.Query, req.TopK)
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("retrieval failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to search stored pages: %v", err), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, DBSearchResponse{Context: out})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

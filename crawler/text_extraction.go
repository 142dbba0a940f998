package crawler

import (
	"bytes"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Content is the main text of a page. Text is empty when nothing readable was found.
type Content struct {
	Title     string
	Text      string
	Extractor string
}

type Extractor struct {
	format Format
	logger *zap.Logger
}

func NewExtractor(format Format, logger *zap.Logger) *Extractor {
	if format == "" {
		format = FormatText
	}
	return &Extractor{format: format, logger: logger}
}

// Extract runs trafilatura, then readability, then a plain tag walk, and keeps
// the first one that yields text.
func (e *Extractor) Extract(body []byte, pageURL *url.URL) Content {
	if c, ok := e.extractWithTrafilatura(body, pageURL); ok {
		return c
	}
	if c, ok := e.extractWithReadability(body, pageURL); ok {
		return c
	}
	if text := ExtractTagText(body); text != "" {
		return Content{Text: text, Extractor: "goquery"}
	}
	return Content{}
}

func (e *Extractor) extractWithTrafilatura(body []byte, pageURL *url.URL) (Content, bool) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:    pageURL,
		EnableFallback: true,
	})
	if err != nil {
		e.logger.Debug("trafilatura: extraction failed", zap.String("url", pageURL.String()), zap.Error(err))
		return Content{}, false
	}
	if result == nil {
		return Content{}, false
	}

	text := strings.TrimSpace(result.ContentText)
	if text == "" {
		return Content{}, false
	}
	if e.format == FormatMarkdown && result.ContentNode != nil {
		if md, err := nodeToMarkdown(result.ContentNode); err == nil && md != "" {
			text = md
		} else if err != nil {
			e.logger.Debug("markdown conversion failed", zap.String("url", pageURL.String()), zap.Error(err))
		}
	}

	e.logger.Debug("trafilatura_extraction_result",
		zap.String("url", pageURL.String()),
		zap.String("title", result.Metadata.Title),
		zap.Int("word_count", len(strings.Fields(text))),
	)
	return Content{Title: result.Metadata.Title, Text: text, Extractor: "trafilatura"}, true
}

func (e *Extractor) extractWithReadability(body []byte, pageURL *url.URL) (Content, bool) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		e.logger.Debug("readability: extraction failed", zap.String("url", pageURL.String()), zap.Error(err))
		return Content{}, false
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Content{}, false
	}
	if e.format == FormatMarkdown && article.Content != "" {
		if md, err := htmltomarkdown.ConvertString(article.Content); err == nil && strings.TrimSpace(md) != "" {
			text = strings.TrimSpace(md)
		}
	}

	e.logger.Debug("readability_extraction_result",
		zap.String("url", pageURL.String()),
		zap.String("title", article.Title),
		zap.Int("word_count", len(strings.Fields(text))),
	)
	return Content{Title: article.Title, Text: text, Extractor: "readability"}, true
}

func nodeToMarkdown(n *html.Node) (string, error) {
	md, err := htmltomarkdown.ConvertNode(n)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(md)), nil
}

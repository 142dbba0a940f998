package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"linkmind/document"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 500

	// Fetched web pages are long, so they are cut into bigger pieces.
	WebChunkSize    = 2048
	WebChunkOverlap = 512
)

// DefaultSeparators are tried in order; "" falls back to hard character boundaries.
var DefaultSeparators = []string{"\n\n", "\n", "\n\n---\n\n", ""}

var ErrInvalidOverlap = errors.New("chunk overlap must be smaller than chunk size")

type Option func(*RecursiveCharacterChunking)

func WithChunkSize(size int) Option {
	return func(c *RecursiveCharacterChunking) {
		c.chunkSize = size
	}
}

func WithChunkOverlap(overlap int) Option {
	return func(c *RecursiveCharacterChunking) {
		c.chunkOverlap = overlap
	}
}

// WithSeparators replaces the separator priority list. A trailing "" is
// appended when missing so oversized runs can still be cut.
func WithSeparators(separators []string) Option {
	return func(c *RecursiveCharacterChunking) {
		c.separators = separators
	}
}

type RecursiveCharacterChunking struct {
	splitter     textsplitter.RecursiveCharacter
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewRecursiveCharacterChunking(opts ...Option) (*RecursiveCharacterChunking, error) {
	c := &RecursiveCharacterChunking{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", c.chunkSize)
	}
	if c.chunkOverlap < 0 || c.chunkOverlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOverlap, c.chunkSize, c.chunkOverlap)
	}

	seps := make([]string, 0, len(c.separators)+1)
	seps = append(seps, c.separators...)
	if len(seps) == 0 || seps[len(seps)-1] != "" {
		seps = append(seps, "")
	}
	c.separators = seps

	c.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.chunkOverlap),
		textsplitter.WithSeparators(c.separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	return c, nil
}

// Split cuts every document into ordered chunks. Each chunk carries a copy of
// its document's metadata and its byte offset in the document text. Empty
// documents produce no chunks.
func (c *RecursiveCharacterChunking) Split(docs []document.Document) ([]document.Chunk, error) {
	var chunks []document.Chunk
	for i, doc := range docs {
		if doc.IsEmpty() {
			continue
		}

		text := doc.Text()
		pieces, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("split document %d: %w", i, err)
		}

		prevStart, prevLen := 0, 0
		for _, piece := range pieces {
			start := c.locate(text, piece, prevStart, prevLen)
			chunks = append(chunks, document.Chunk{
				Content:  piece,
				Metadata: doc.Metadata(),
				Start:    start,
			})
			prevStart, prevLen = start, len(piece)
		}
	}
	return chunks, nil
}

// locate finds piece in text, starting where the overlap with the previous
// chunk is expected to begin so repeated passages resolve to the right spot.
func (c *RecursiveCharacterChunking) locate(text, piece string, prevStart, prevLen int) int {
	from := prevStart + prevLen - overlapBytes(text[prevStart:prevStart+prevLen], c.chunkOverlap)
	if from < 0 {
		from = 0
	}

	if idx := strings.Index(text[from:], piece); idx >= 0 {
		return from + idx
	}
	return strings.Index(text, piece)
}

// overlapBytes returns the byte length of the last n runes of s.
func overlapBytes(s string, n int) int {
	size := 0
	for i := 0; i < n && size < len(s); i++ {
		_, w := utf8.DecodeLastRuneInString(s[:len(s)-size])
		size += w
	}
	return size
}

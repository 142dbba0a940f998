package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

const DefaultHashingDimensions = 384

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "must": true, "shall": true, "do": true,
	"does": true, "did": true, "have": true, "had": true, "this": true,
	"these": true, "they": true, "them": true, "their": true, "his": true,
	"her": true, "she": true, "we": true, "you": true, "your": true,
	"our": true, "us": true, "me": true, "my": true, "i": true,
}

// Hashing is an offline embedding function: stemmed terms are feature-hashed
// into a fixed number of buckets and the result is L2-normalized. It needs no
// model server, so it backs local runs and tests.
type Hashing struct {
	dims int
}

func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &Hashing{dims: dims}
}

func (h *Hashing) Dimensions() int {
	return h.dims
}

func (h *Hashing) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *Hashing) embed(text string) []float32 {
	vec := make([]float32, h.dims)
	for _, term := range Terms(text) {
		hasher := fnv.New64a()
		hasher.Write([]byte(term))
		sum := hasher.Sum64()

		idx := int(sum % uint64(h.dims))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	return Normalize(vec)
}

// Terms lowercases text, drops stop words and one-letter tokens, and stems
// what is left.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		terms = append(terms, stemWord(w))
	}
	return terms
}

func stemWord(word string) string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stem
}

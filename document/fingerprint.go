package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest is a SHA-256 content fingerprint.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Fingerprint digests text content alone. It is the key used to drop
// duplicate chunks at query time.
func Fingerprint(content string) Digest {
	return sha256.Sum256([]byte(content))
}

// FingerprintWithMetadata digests content followed by a canonical rendering of
// md. A zero Metadata yields the same digest as Fingerprint(content).
func FingerprintWithMetadata(content string, md Metadata) Digest {
	if md.IsZero() {
		return Fingerprint(content)
	}

	var b strings.Builder
	b.Grow(len(content) + len(md.Link) + len(md.Title) + len(md.Snippet) + 32)
	b.WriteString(content)
	b.WriteString("\x00link=")
	b.WriteString(md.Link)
	b.WriteString("\x00source=")
	b.WriteString(md.Title)
	b.WriteString("\x00snippet=")
	b.WriteString(md.Snippet)
	return sha256.Sum256([]byte(b.String()))
}

// Deduper remembers digests it has seen. Not safe for concurrent use.
type Deduper struct {
	seen map[Digest]struct{}
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[Digest]struct{})}
}

// Add records d and reports whether it was seen for the first time.
func (dd *Deduper) Add(d Digest) bool {
	if _, ok := dd.seen[d]; ok {
		return false
	}
	dd.seen[d] = struct{}{}
	return true
}

func (dd *Deduper) Len() int {
	return len(dd.seen)
}

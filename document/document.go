package document

// Kind tells which constructor produced a Document.
type Kind int

const (
	KindRawText Kind = iota
	KindFetchedPage
	KindSearchResult
)

func (k Kind) String() string {
	switch k {
	case KindFetchedPage:
		return "fetched_page"
	case KindSearchResult:
		return "search_result"
	default:
		return "raw_text"
	}
}

// Metadata is the uniform metadata shape carried by every Document and Chunk.
// Fields a constructor does not know about stay empty.
type Metadata struct {
	Link    string `json:"link,omitempty"`
	Title   string `json:"source,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// Document is raw text plus the metadata of where it came from.
// The zero value is an empty raw-text document.
type Document struct {
	kind     Kind
	text     string
	metadata Metadata
}

// FromSearchResult wraps a fetched search hit, keeping its title, link and snippet.
func FromSearchResult(link, title, snippet, content string) Document {
	return Document{
		kind: KindSearchResult,
		text: content,
		metadata: Metadata{
			Link:    link,
			Title:   title,
			Snippet: snippet,
		},
	}
}

// FromFetchedPage wraps the extracted text of a page opened by link.
func FromFetchedPage(link, content string) Document {
	return Document{
		kind:     KindFetchedPage,
		text:     content,
		metadata: Metadata{Link: link},
	}
}

func FromRawText(text string) Document {
	return Document{kind: KindRawText, text: text}
}

func (d Document) Kind() Kind {
	return d.kind
}

func (d Document) Text() string {
	return d.text
}

func (d Document) Metadata() Metadata {
	return d.metadata
}

func (d Document) IsEmpty() bool {
	return d.text == ""
}

// Chunk is a bounded slice of a Document's text. Start is the byte offset of
// Content within the parent text.
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Start    int      `json:"start_index"`
}

// Fingerprint digests the chunk content together with its metadata.
func (c Chunk) Fingerprint() Digest {
	return FingerprintWithMetadata(c.Content, c.Metadata)
}

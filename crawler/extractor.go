package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractTagText collects the text of headings, paragraphs and list items, or
// of divs when a page has none of those. Used when the article extractors give up.
func ExtractTagText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var texts []string
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, pre").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > 10 {
			texts = append(texts, text)
		}
	})

	if len(texts) == 0 {
		doc.Find("div").Each(func(i int, s *goquery.Selection) {
			// leaf divs only, so nested wrappers do not repeat their children
			if s.Find("div").Length() > 0 {
				return
			}
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				texts = append(texts, text)
			}
		})
	}

	return strings.Join(strings.Fields(strings.Join(texts, " ")), " ")
}

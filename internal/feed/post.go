package feed

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const excerptLen = 120

// bridgeDateLayout is how rss2json formats pubDate.
const bridgeDateLayout = "2006-01-02 15:04:05"

// Excerpt returns the description as plain text, cut to 120 characters.
func (p Post) Excerpt() string {
	text := p.Description
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Description)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > excerptLen {
		return string(runes[:excerptLen]) + "..."
	}
	return text
}

// Published formats the publication date like "Jan 2, 2006". Unparseable
// dates are returned as-is.
func (p Post) Published() string {
	for _, layout := range []string{bridgeDateLayout, time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, p.PubDate); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return p.PubDate
}

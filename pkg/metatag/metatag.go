// Package metatag reads OpenGraph style <meta> tags out of HTML documents.
package metatag

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"
)

// OGTitle is the property carrying a post's title, which for Instagram posts
// is "<account>: <caption>".
const OGTitle = "og:title"

// Extract returns the content attribute of the first <meta property="..."> tag
// matching property. ok is false when no such tag exists. Malformed markup is
// tolerated the way browsers tolerate it.
func Extract(html []byte, property string) (content string, ok bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", false, errors.Wrap(err, "parse html")
	}

	doc.Find("meta[property]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if p, _ := s.Attr("property"); !strings.EqualFold(strings.TrimSpace(p), property) {
			return true
		}
		content, ok = s.Attr("content")

		return false
	})

	return content, ok, nil
}

// CaptionFromTitle drops everything up to and including the first colon,
// keeping later colons, and trims the surrounding whitespace. A title without
// a colon yields "".
func CaptionFromTitle(title string) string {
	_, caption, found := strings.Cut(title, ":")
	if !found {
		return ""
	}

	return strings.TrimSpace(caption)
}

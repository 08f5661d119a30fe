package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scour-dl/scour/internal/engine/types"
)

// eromeExtractor handles erome profiles and albums. A profile lists
// album links; an album exposes its videos and lazy-loaded images
// directly.
type eromeExtractor struct{}

func (e eromeExtractor) Index(doc *goquery.Document, base *url.URL, kind types.EntryKind) Result {
	if kind == types.EntryAlbum {
		return e.Child(doc, base)
	}

	res := Result{FolderHint: strings.TrimSpace(doc.Find("h1.username").First().Text())}
	doc.Find("a.album-link").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if u := resolve(base, href); u != "" {
				res.FollowUps = append(res.FollowUps, u)
			}
		}
	})
	return res
}

func (eromeExtractor) Child(doc *goquery.Document, base *url.URL) Result {
	res := Result{FolderHint: firstHeading(doc)}

	doc.Find("video source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if c, ok := candidate(base, src); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	doc.Find("div.img img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok {
			if c, ok := candidate(base, src); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	return res
}

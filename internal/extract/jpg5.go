package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/scour-dl/scour/internal/engine/types"
)

// jpg5Extractor handles jpg5 galleries: tiles link to viewer pages whose
// download button holds the actual asset URL.
type jpg5Extractor struct{}

const jpg5FallbackFolder = "Jpg5_Download"

func (jpg5Extractor) Index(doc *goquery.Document, base *url.URL, _ types.EntryKind) Result {
	hint := firstHeading(doc)
	if hint == "" {
		hint = jpg5FallbackFolder
	}
	res := Result{FolderHint: hint}
	doc.Find("div.list-item.c8.gutter-margin-right-bottom a.image-container").
		Each(func(_ int, s *goquery.Selection) {
			// The tile class "--media" starts with hyphens, which CSS
			// selectors reject, so filter here instead.
			if !s.HasClass("--media") {
				return
			}
			if href, ok := s.Attr("href"); ok {
				if u := resolve(base, href); u != "" {
					res.FollowUps = append(res.FollowUps, u)
				}
			}
		})
	return res
}

func (jpg5Extractor) Child(doc *goquery.Document, base *url.URL) Result {
	var res Result
	doc.Find("div.header-content-right a.btn.btn-download.default").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if c, ok := candidate(base, href); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	return res
}

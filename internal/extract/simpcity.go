package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/scour-dl/scour/internal/engine/types"
)

// simpCityExtractor handles forum threads. Thread pages link out to
// viewer pages; each viewer page carries one download button with the
// real file URL. Pagination is driven by the pipeline.
type simpCityExtractor struct{}

const simpCityFallbackFolder = "SimpCity_Download"

func (simpCityExtractor) Index(doc *goquery.Document, base *url.URL, _ types.EntryKind) Result {
	hint := firstHeading(doc)
	if hint == "" {
		hint = simpCityFallbackFolder
	}
	res := Result{FolderHint: hint}
	doc.Find("div.message-inner div.bbWrapper a.link--external").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if u := resolve(base, href); u != "" {
				res.FollowUps = append(res.FollowUps, u)
			}
		}
	})
	return res
}

func (simpCityExtractor) Child(doc *goquery.Document, base *url.URL) Result {
	var res Result
	doc.Find("div.header-content-right a.btn-download").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if c, ok := candidate(base, href); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	return res
}

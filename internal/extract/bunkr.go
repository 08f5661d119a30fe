package extract

import (
	"net/url"
	"path"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/scour-dl/scour/internal/engine/types"
)

// bunkrExtractor handles bunkr grids and single posts. Pages without a
// usable title get a generated folder hint.
type bunkrExtractor struct{}

func (e bunkrExtractor) Index(doc *goquery.Document, base *url.URL, kind types.EntryKind) Result {
	if kind != types.EntryProfile {
		return e.Child(doc, base)
	}

	hint := firstHeading(doc)
	if hint == "" {
		hint = "bunkr_profile_" + uuid.New().String()
	}
	res := Result{FolderHint: hint}
	doc.Find("div.grid-images_box a.grid-images_box-link").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if u := resolve(base, href); u != "" {
				res.FollowUps = append(res.FollowUps, u)
			}
		}
	})
	return res
}

func (bunkrExtractor) Child(doc *goquery.Document, base *url.URL) Result {
	hint := firstHeading(doc)
	if hint == "" {
		hint = "bunkr_post_" + uuid.New().String()
	}
	res := Result{FolderHint: hint, PostID: path.Base(base.Path)}

	doc.Find("div.lightgallery img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if c, ok := candidate(base, src); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	doc.Find("video source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if c, ok := candidate(base, src); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	return res
}

package extract

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scour-dl/scour/internal/engine/types"
)

// ckExtractor handles coomer/kemono style boards. Profile pages carry
// post cards whose data attributes expand to canonical post URLs; post
// pages carry thumbnails and attachments.
type ckExtractor struct{}

func (e ckExtractor) Index(doc *goquery.Document, base *url.URL, kind types.EntryKind) Result {
	if kind == types.EntryAlbum {
		res := e.Child(doc, base)
		res.FolderHint = ckUser(base)
		return res
	}

	// Canonical post URLs are https; plain http survives only when the
	// entry itself was fetched over it.
	scheme := "https"
	if base.Scheme == "http" {
		scheme = "http"
	}

	res := Result{FolderHint: ckUser(base)}
	doc.Find("article.post-card.post-card--preview").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("data-id")
		service, _ := s.Attr("data-service")
		user, _ := s.Attr("data-user")
		if id == "" || service == "" || user == "" {
			return
		}
		res.FollowUps = append(res.FollowUps,
			fmt.Sprintf("%s://%s/%s/user/%s/post/%s", scheme, base.Host, service, user, id))
	})
	return res
}

func (ckExtractor) Child(doc *goquery.Document, base *url.URL) Result {
	res := Result{PostID: path.Base(base.Path)}

	doc.Find("div.post__thumbnail img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if c, ok := candidate(base, src); ok {
				res.Media = append(res.Media, c)
			}
		}
	})
	doc.Find("ul.post__attachments li.post__attachment a.post__attachment-link").
		Each(func(_ int, s *goquery.Selection) {
			if href, ok := s.Attr("href"); ok {
				if c, ok := candidate(base, href); ok {
					res.Media = append(res.Media, c)
				}
			}
		})
	return res
}

// ckUser pulls the user segment out of /<service>/user/<user>[/post/<id>].
func ckUser(base *url.URL) string {
	segs := splitPath(base.Path)
	for i, s := range segs {
		if s == "user" && i+1 < len(segs) {
			return segs[i+1]
		}
	}
	if len(segs) > 0 {
		return segs[len(segs)-1]
	}
	return ""
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Package extract holds the per-site HTML adapters. Extractors are pure:
// they map a parsed document plus its base URL to discovered media and
// follow-up pages, and never perform I/O.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scour-dl/scour/internal/engine/types"
)

// MediaCandidate is one downloadable URL discovered on a page.
type MediaCandidate struct {
	URL  string
	Kind types.MediaKind
}

// Result is the outcome of extracting one document.
type Result struct {
	// FolderHint names the per-entry directory. May be empty on child
	// pages that inherit the entry folder.
	FolderHint string
	// PostID identifies the post for the per-post layout, when the site
	// has a notion of one.
	PostID string
	// Media are direct download candidates found on this page.
	Media []MediaCandidate
	// FollowUps are page URLs to fetch and extract next (depth 1).
	FollowUps []string
}

// Extractor is the per-site adapter. Index handles the entry document,
// Child handles each follow-up document.
type Extractor interface {
	Index(doc *goquery.Document, base *url.URL, kind types.EntryKind) Result
	Child(doc *goquery.Document, base *url.URL) Result
}

// ForSite returns the extractor registered for the site.
func ForSite(site types.Site) (Extractor, bool) {
	e, ok := extractors[site]
	return e, ok
}

var extractors = map[types.Site]Extractor{
	types.SiteCK:       ckExtractor{},
	types.SiteErome:    eromeExtractor{},
	types.SiteBunkr:    bunkrExtractor{},
	types.SiteSimpCity: simpCityExtractor{},
	types.SiteJpg5:     jpg5Extractor{},
}

// resolve turns href into an absolute URL against base.
// Protocol-relative references become https.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// candidate builds a MediaCandidate with the kind derived from the URL.
func candidate(base *url.URL, href string) (MediaCandidate, bool) {
	u := resolve(base, href)
	if u == "" {
		return MediaCandidate{}, false
	}
	return MediaCandidate{URL: u, Kind: KindFromURL(u)}, true
}

// firstHeading returns the trimmed text of the first h1, with any nested
// anchor text removed.
func firstHeading(doc *goquery.Document) string {
	h1 := doc.Find("h1").First()
	if h1.Length() == 0 {
		return ""
	}
	clone := h1.Clone()
	clone.Find("a").Remove()
	return strings.TrimSpace(clone.Text())
}

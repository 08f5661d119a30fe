// Package pipeline drives discovery for one entry URL: fetch the index
// document, run the site extractor, follow child pages one level deep,
// and hand every media candidate to the session for enqueuing.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scour-dl/scour/internal/engine/types"
	"github.com/scour-dl/scour/internal/extract"
	"github.com/scour-dl/scour/internal/utils"
)

// Fetcher is the document source. Satisfied by *fetch.Client.
type Fetcher interface {
	FetchDocument(ctx context.Context, rawurl string) (body []byte, finalURL string, err error)
}

// Folder names the destination directory for a group of candidates.
type Folder struct {
	Hint   string // per-entry directory name (unsanitized)
	PostID string // set when the site has a post notion
}

// Deps are the session-owned collaborators of a pipeline run. Enqueue
// owns dedup, kind filtering and pool submission; VisitPage dedups
// follow-up fetches; Warn reports recoverable extraction problems.
type Deps struct {
	Fetch     Fetcher
	Enqueue   func(folder Folder, c extract.MediaCandidate)
	VisitPage func(rawurl string) bool
	Warn      func(format string, args ...any)
}

// Run walks the site starting at entryURL until every reachable media
// candidate is enqueued. It returns an error only when the entry page
// itself cannot be fetched or parsed.
func Run(ctx context.Context, site types.Site, kind types.EntryKind, entryURL string, deps Deps) error {
	ext, ok := extract.ForSite(site)
	if !ok {
		return fmt.Errorf("no extractor for site %s", site)
	}

	if site == types.SiteSimpCity {
		return runPaginated(ctx, ext, entryURL, deps)
	}

	doc, base, err := fetchDoc(ctx, deps.Fetch, entryURL)
	if err != nil {
		return err
	}

	res := ext.Index(doc, base, kind)
	folder := Folder{Hint: res.FolderHint, PostID: res.PostID}
	for _, c := range res.Media {
		deps.Enqueue(folder, c)
	}

	for _, followUp := range res.FollowUps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !deps.VisitPage(followUp) {
			continue
		}
		childDoc, childBase, err := fetchDoc(ctx, deps.Fetch, followUp)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			deps.Warn("skipping page %s: %v", followUp, err)
			continue
		}
		child := ext.Child(childDoc, childBase)
		childFolder := Folder{Hint: child.FolderHint, PostID: child.PostID}
		if childFolder.Hint == "" {
			childFolder.Hint = res.FolderHint
		}
		for _, c := range child.Media {
			deps.Enqueue(childFolder, c)
		}
	}
	return nil
}

// runPaginated walks entryURL/page-1, /page-2, ... until a page fails.
// The first page names the folder; every page's external links lead to
// viewer pages carrying the real file URL.
func runPaginated(ctx context.Context, ext extract.Extractor, entryURL string, deps Deps) error {
	base := strings.TrimRight(entryURL, "/")
	var folder Folder

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		pageURL := fmt.Sprintf("%s/page-%d", base, page)
		doc, pageBase, err := fetchDoc(ctx, deps.Fetch, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if page == 1 {
				return err
			}
			// A page that stops responding ends the walk; earlier
			// pages already produced their tasks.
			utils.Debug("pagination stopped at page %d: %v", page, err)
			return nil
		}

		res := ext.Index(doc, pageBase, types.EntryGalleryIndex)
		if page == 1 {
			folder = Folder{Hint: res.FolderHint}
		}

		for _, viewerURL := range res.FollowUps {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !deps.VisitPage(viewerURL) {
				continue
			}
			childDoc, childBase, err := fetchDoc(ctx, deps.Fetch, viewerURL)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				deps.Warn("skipping viewer %s: %v", viewerURL, err)
				continue
			}
			for _, c := range ext.Child(childDoc, childBase).Media {
				deps.Enqueue(folder, c)
			}
		}
	}
}

func fetchDoc(ctx context.Context, f Fetcher, rawurl string) (*goquery.Document, *url.URL, error) {
	body, finalURL, err := f.FetchDocument(ctx, rawurl)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", rawurl, err)
	}
	parsed, err := url.Parse(finalURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse final URL %s: %w", finalURL, err)
	}
	return doc, parsed, nil
}

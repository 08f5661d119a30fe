package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scour-dl/scour/internal/engine/types"
	"github.com/scour-dl/scour/internal/extract"
)

// fakeFetcher serves canned HTML per URL; missing URLs fail.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchDocument(ctx context.Context, rawurl string) ([]byte, string, error) {
	f.fetched = append(f.fetched, rawurl)
	body, ok := f.pages[rawurl]
	if !ok {
		return nil, "", fmt.Errorf("unexpected status 404 for %s", rawurl)
	}
	return []byte(body), rawurl, nil
}

type sink struct {
	media    []string
	folders  []Folder
	visited  map[string]struct{}
	warnings []string
}

func newSink() *sink {
	return &sink{visited: make(map[string]struct{})}
}

func (s *sink) deps(f Fetcher) Deps {
	return Deps{
		Fetch: f,
		Enqueue: func(folder Folder, c extract.MediaCandidate) {
			s.media = append(s.media, c.URL)
			s.folders = append(s.folders, folder)
		},
		VisitPage: func(rawurl string) bool {
			if _, seen := s.visited[rawurl]; seen {
				return false
			}
			s.visited[rawurl] = struct{}{}
			return true
		},
		Warn: func(format string, args ...any) {
			s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
		},
	}
}

func TestRunProfileWithChildren(t *testing.T) {
	entry := "https://coomer.su/onlyfans/user/abcdef"
	f := &fakeFetcher{pages: map[string]string{
		entry: `<article class="post-card post-card--preview" data-id="1" data-service="onlyfans" data-user="abcdef"></article>
			<article class="post-card post-card--preview" data-id="2" data-service="onlyfans" data-user="abcdef"></article>`,
		"https://coomer.su/onlyfans/user/abcdef/post/1": `<div class="post__thumbnail"><img src="/data/one.jpg"></div>`,
		"https://coomer.su/onlyfans/user/abcdef/post/2": `<div class="post__thumbnail"><img src="/data/two.jpg"></div>`,
	}}
	s := newSink()

	err := Run(context.Background(), types.SiteCK, types.EntryProfile, entry, s.deps(f))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://coomer.su/data/one.jpg",
		"https://coomer.su/data/two.jpg",
	}, s.media)
	// Children without their own title inherit the entry folder.
	for _, folder := range s.folders {
		assert.Equal(t, "abcdef", folder.Hint)
	}
	assert.Equal(t, []Folder{{Hint: "abcdef", PostID: "1"}, {Hint: "abcdef", PostID: "2"}}, s.folders)
}

func TestRunEntryFetchFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	s := newSink()

	err := Run(context.Background(), types.SiteErome, types.EntryProfile,
		"https://erome.com/nobody", s.deps(f))
	assert.Error(t, err)
	assert.Empty(t, s.media)
}

func TestRunChildFailureContinues(t *testing.T) {
	entry := "https://erome.com/someone"
	f := &fakeFetcher{pages: map[string]string{
		entry: `<h1 class="username">Someone</h1>
			<a class="album-link" href="/a/gone"></a>
			<a class="album-link" href="/a/here"></a>`,
		"https://erome.com/a/here": `<h1>Here</h1><div class="img"><img data-src="https://i.erome.com/ok.jpg"></div>`,
	}}
	s := newSink()

	err := Run(context.Background(), types.SiteErome, types.EntryProfile, entry, s.deps(f))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://i.erome.com/ok.jpg"}, s.media)
	assert.Len(t, s.warnings, 1)
}

func TestRunSkipsVisitedPages(t *testing.T) {
	entry := "https://erome.com/someone"
	f := &fakeFetcher{pages: map[string]string{
		entry: `<h1 class="username">Someone</h1>
			<a class="album-link" href="/a/one"></a>
			<a class="album-link" href="/a/one"></a>`,
		"https://erome.com/a/one": `<div class="img"><img data-src="https://i.erome.com/x.jpg"></div>`,
	}}
	s := newSink()

	err := Run(context.Background(), types.SiteErome, types.EntryProfile, entry, s.deps(f))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://i.erome.com/x.jpg"}, s.media)

	var childFetches int
	for _, u := range f.fetched {
		if u == "https://erome.com/a/one" {
			childFetches++
		}
	}
	assert.Equal(t, 1, childFetches, "duplicate album links must be fetched once")
}

func TestRunPaginated(t *testing.T) {
	entry := "https://simpcity.su/threads/great.1"

	t.Run("walks pages until one fails", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{
			entry + "/page-1": `<h1>Great</h1>
				<div class="message-inner"><div class="bbWrapper">
					<a class="link--external" href="https://host.example/v/1"></a>
					<a class="link--external" href="https://host.example/v/2"></a>
				</div></div>`,
			entry + "/page-2": `<h1>Great</h1>
				<div class="message-inner"><div class="bbWrapper">
					<a class="link--external" href="https://host.example/v/3"></a>
				</div></div>`,
			"https://host.example/v/1": `<div class="header-content-right"><a class="btn-download" href="https://cdn.example/1.jpg"></a></div>`,
			"https://host.example/v/2": `<div class="header-content-right"><a class="btn-download" href="https://cdn.example/2.jpg"></a></div>`,
			"https://host.example/v/3": `<div class="header-content-right"><a class="btn-download" href="https://cdn.example/3.jpg"></a></div>`,
		}}
		s := newSink()

		err := Run(context.Background(), types.SiteSimpCity, types.EntryGalleryIndex, entry, s.deps(f))
		require.NoError(t, err)

		assert.Equal(t, []string{
			"https://cdn.example/1.jpg",
			"https://cdn.example/2.jpg",
			"https://cdn.example/3.jpg",
		}, s.media)
		// Page 3 was probed and ended the walk.
		assert.Contains(t, f.fetched, entry+"/page-3")
		// Every file goes into the folder named by the first page.
		for _, folder := range s.folders {
			assert.Equal(t, "Great", folder.Hint)
		}
	})

	t.Run("first page failure fails the run", func(t *testing.T) {
		f := &fakeFetcher{pages: map[string]string{}}
		s := newSink()

		err := Run(context.Background(), types.SiteSimpCity, types.EntryGalleryIndex, entry, s.deps(f))
		assert.Error(t, err)
		assert.Empty(t, s.media)
	})
}

package extract

import (
	"errors"
	"testing"

	"github.com/scour-dl/scour/internal/engine/types"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		url  string
		site types.Site
		kind types.EntryKind
	}{
		{"coomer profile", "https://coomer.su/onlyfans/user/abcdef", types.SiteCK, types.EntryProfile},
		{"coomer post", "https://coomer.su/onlyfans/user/abcdef/post/123", types.SiteCK, types.EntryAlbum},
		{"kemono profile", "https://kemono.su/patreon/user/999", types.SiteCK, types.EntryProfile},
		{"erome album", "https://www.erome.com/a/XyZ123", types.SiteErome, types.EntryAlbum},
		{"erome profile", "https://erome.com/somebody", types.SiteErome, types.EntryProfile},
		{"bunkr grid", "https://bunkr.si/a/abc", types.SiteBunkr, types.EntryProfile},
		{"bunkr post", "https://bunkrrr.org/v/xyz", types.SiteBunkr, types.EntryAlbum},
		{"simpcity thread", "https://simpcity.su/threads/some-thread.1234/", types.SiteSimpCity, types.EntryGalleryIndex},
		{"jpg5 gallery", "https://jpg5.su/a/gallery", types.SiteJpg5, types.EntryGalleryIndex},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			site, kind, err := Classify(tc.url)
			if err != nil {
				t.Fatalf("Classify(%q): %v", tc.url, err)
			}
			if site != tc.site || kind != tc.kind {
				t.Errorf("Classify(%q) = %v/%v, want %v/%v", tc.url, site, kind, tc.site, tc.kind)
			}
		})
	}

	t.Run("unsupported hosts rejected", func(t *testing.T) {
		for _, u := range []string{
			"https://example.com/a/b",
			"not a url",
			"ftp://",
			"https://coomer.su/about",
		} {
			if _, _, err := Classify(u); !errors.Is(err, ErrUnsupportedURL) {
				t.Errorf("Classify(%q) err = %v, want ErrUnsupportedURL", u, err)
			}
		}
	})
}

func TestKindFromURL(t *testing.T) {
	cases := map[string]types.MediaKind{
		"https://cdn.example/img/photo.JPG":        types.KindImage,
		"https://cdn.example/img/anim.webp?f=1":    types.KindImage,
		"https://cdn.example/vid/clip.mp4":         types.KindVideo,
		"https://cdn.example/vid/clip.MKV":         types.KindVideo,
		"https://cdn.example/data/batch.zip":       types.KindArchive,
		"https://cdn.example/data/batch.7z":        types.KindArchive,
		"https://cdn.example/docs/readme.pdf":      types.KindDocument,
		"https://cdn.example/docs/notes.txt":       types.KindDocument,
		"https://cdn.example/strange/file.webmish": types.KindUnknown,
		"https://cdn.example/noextension":          types.KindUnknown,
	}
	for u, want := range cases {
		if got := KindFromURL(u); got != want {
			t.Errorf("KindFromURL(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestGroupDir(t *testing.T) {
	cases := map[types.MediaKind]string{
		types.KindImage:    "images",
		types.KindVideo:    "videos",
		types.KindArchive:  "compressed",
		types.KindDocument: "documents",
		types.KindUnknown:  "documents",
	}
	for kind, want := range cases {
		if got := kind.GroupDir(); got != want {
			t.Errorf("%v.GroupDir() = %q, want %q", kind, got, want)
		}
	}
}

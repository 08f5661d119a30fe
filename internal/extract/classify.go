package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/scour-dl/scour/internal/engine/types"
)

// ErrUnsupportedURL is returned when an entry URL cannot be mapped to a
// supported site.
var ErrUnsupportedURL = errors.New("unsupported entry URL")

// Classify maps an entry URL onto a supported site and entry kind.
func Classify(rawurl string) (types.Site, types.EntryKind, error) {
	u, err := url.Parse(rawurl)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return types.SiteUnknown, 0, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawurl)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	p := u.Path

	switch {
	case strings.HasPrefix(host, "coomer.") || strings.HasPrefix(host, "kemono."):
		if strings.Contains(p, "/post/") {
			return types.SiteCK, types.EntryAlbum, nil
		}
		if strings.Contains(p, "/user/") {
			return types.SiteCK, types.EntryProfile, nil
		}
		return types.SiteUnknown, 0, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawurl)

	case host == "erome.com":
		if strings.HasPrefix(p, "/a/") {
			return types.SiteErome, types.EntryAlbum, nil
		}
		return types.SiteErome, types.EntryProfile, nil

	case strings.HasPrefix(host, "bunkr"):
		// Grid pages live under /a/; anything else is a single post.
		if strings.HasPrefix(p, "/a/") {
			return types.SiteBunkr, types.EntryProfile, nil
		}
		return types.SiteBunkr, types.EntryAlbum, nil

	case strings.HasPrefix(host, "simpcity."):
		return types.SiteSimpCity, types.EntryGalleryIndex, nil

	case strings.HasPrefix(host, "jpg5.") || strings.HasPrefix(host, "jpg."):
		return types.SiteJpg5, types.EntryGalleryIndex, nil
	}

	return types.SiteUnknown, 0, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawurl)
}

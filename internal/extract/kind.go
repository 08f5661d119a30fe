package extract

import (
	"net/url"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/scour-dl/scour/internal/engine/types"
)

// Extensions the sites serve routinely; checked before falling back to
// the filetype tables.
var kindByExt = map[string]types.MediaKind{
	"jpg": types.KindImage, "jpeg": types.KindImage, "png": types.KindImage,
	"gif": types.KindImage, "webp": types.KindImage,
	"mp4": types.KindVideo, "avi": types.KindVideo, "mkv": types.KindVideo,
	"webm": types.KindVideo,
	"zip": types.KindArchive, "rar": types.KindArchive, "7z": types.KindArchive,
	"pdf": types.KindDocument, "txt": types.KindDocument,
}

// KindFromURL derives the media class from the URL path's extension.
// Unrecognized extensions classify as unknown and are still downloaded.
func KindFromURL(rawurl string) types.MediaKind {
	p := rawurl
	if u, err := url.Parse(rawurl); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return types.KindUnknown
	}
	if k, ok := kindByExt[ext]; ok {
		return k
	}

	t := filetype.GetType(ext)
	if t == filetype.Unknown {
		return types.KindUnknown
	}
	switch {
	case matchers.Image[t] != nil:
		return types.KindImage
	case matchers.Video[t] != nil:
		return types.KindVideo
	case matchers.Archive[t] != nil:
		return types.KindArchive
	case matchers.Document[t] != nil:
		return types.KindDocument
	}
	return types.KindUnknown
}

package types

import (
	"sync/atomic"
	"time"
)

// Site identifies one of the supported hosts. Each site has its own
// extraction pipeline.
type Site int

const (
	SiteUnknown Site = iota
	SiteCK           // coomer/kemono style boards
	SiteErome
	SiteBunkr
	SiteSimpCity
	SiteJpg5
)

func (s Site) String() string {
	switch s {
	case SiteCK:
		return "ck"
	case SiteErome:
		return "erome"
	case SiteBunkr:
		return "bunkr"
	case SiteSimpCity:
		return "simpcity"
	case SiteJpg5:
		return "jpg5"
	}
	return "unknown"
}

// EntryKind classifies what the entry URL points at.
type EntryKind int

const (
	EntryProfile EntryKind = iota
	EntryAlbum
	EntryGalleryIndex
)

func (k EntryKind) String() string {
	switch k {
	case EntryProfile:
		return "profile"
	case EntryAlbum:
		return "album"
	case EntryGalleryIndex:
		return "gallery-index"
	}
	return "unknown"
}

// MediaKind is the media class derived from the file extension.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindImage
	KindVideo
	KindArchive
	KindDocument
)

// GroupDir returns the on-disk subdirectory for this kind.
// Unknown files land with the documents.
func (k MediaKind) GroupDir() string {
	switch k {
	case KindImage:
		return "images"
	case KindVideo:
		return "videos"
	case KindArchive:
		return "compressed"
	}
	return "documents"
}

func (k MediaKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindArchive:
		return "archive"
	case KindDocument:
		return "document"
	}
	return "unknown"
}

// TaskState is the lifecycle state of a MediaTask.
type TaskState int32

const (
	StatePending TaskState = iota
	StateActive
	StateDone
	StateFailed
	StateSkipped
	StateCancelled
)

func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	case StateCancelled:
		return "cancelled"
	}
	return "invalid"
}

// Terminal reports whether no further transition is allowed from s.
func (s TaskState) Terminal() bool {
	return s != StatePending && s != StateActive
}

// MediaTask is one unit of download work. A task is owned by exactly one
// worker from dispatch until it reaches a terminal state.
type MediaTask struct {
	ID        string
	SourceURL string
	DestPath  string
	Kind      MediaKind
	// GeneratedName marks a destination filename that was invented
	// because the URL had no usable last path segment; the server's
	// Content-Disposition name replaces it when offered.
	GeneratedName bool

	state      atomic.Int32
	BytesDone  atomic.Int64
	BytesTotal atomic.Int64
	Attempts   atomic.Int32
}

func (t *MediaTask) State() TaskState {
	return TaskState(t.state.Load())
}

// Transition moves the task to next and reports whether the move was
// legal. Terminal states are absorbing, so a task reaches exactly one.
func (t *MediaTask) Transition(next TaskState) bool {
	for {
		cur := TaskState(t.state.Load())
		if cur.Terminal() {
			return false
		}
		if t.state.CompareAndSwap(int32(cur), int32(next)) {
			return true
		}
	}
}

// LayoutMode selects the on-disk folder layout.
type LayoutMode string

const (
	LayoutDefault LayoutMode = "default"
	LayoutPerPost LayoutMode = "per-post"

	// LayoutPostNumberAlias is the legacy settings.json spelling of
	// LayoutPerPost, still accepted on input.
	LayoutPostNumberAlias = "post_number"
)

// ParseLayout maps a user-supplied layout identifier to a LayoutMode.
func ParseLayout(s string) (LayoutMode, bool) {
	switch s {
	case string(LayoutDefault), "":
		return LayoutDefault, true
	case string(LayoutPerPost), LayoutPostNumberAlias:
		return LayoutPerPost, true
	}
	return LayoutDefault, false
}

// Options configure one engine session.
type Options struct {
	RootFolder        string
	MaxConcurrency    int
	Layout            LayoutMode
	DownloadImages    bool
	DownloadVideos    bool
	DownloadArchives  bool
	DownloadDocuments bool
	ProxyURL          string
	UserAgent         string
}

const (
	DefaultConcurrency = 3
	MinConcurrencyOpt  = 1
	MaxConcurrencyOpt  = 10
)

// DefaultOptions returns Options with every media kind enabled.
func DefaultOptions(root string) Options {
	return Options{
		RootFolder:        root,
		MaxConcurrency:    DefaultConcurrency,
		Layout:            LayoutDefault,
		DownloadImages:    true,
		DownloadVideos:    true,
		DownloadArchives:  true,
		DownloadDocuments: true,
	}
}

// Normalize clamps option values into their valid ranges.
func (o *Options) Normalize() {
	switch {
	case o.MaxConcurrency == 0:
		o.MaxConcurrency = DefaultConcurrency
	case o.MaxConcurrency < MinConcurrencyOpt:
		o.MaxConcurrency = MinConcurrencyOpt
	case o.MaxConcurrency > MaxConcurrencyOpt:
		o.MaxConcurrency = MaxConcurrencyOpt
	}
	if o.Layout == "" {
		o.Layout = LayoutDefault
	}
}

// WantKind reports whether the session's kind filters admit k.
// Unknown files are treated as documents.
func (o *Options) WantKind(k MediaKind) bool {
	switch k {
	case KindImage:
		return o.DownloadImages
	case KindVideo:
		return o.DownloadVideos
	case KindArchive:
		return o.DownloadArchives
	}
	return o.DownloadDocuments
}

// Counters aggregate per-session task outcomes. All fields are updated
// atomically by workers.
type Counters struct {
	Discovered atomic.Int64
	Completed  atomic.Int64
	Failed     atomic.Int64
	Skipped    atomic.Int64
	Cancelled  atomic.Int64
	Bytes      atomic.Int64
}

// Summary is the immutable completion report returned by a session.
type Summary struct {
	Site       Site
	EntryURL   string
	Discovered int64
	Completed  int64
	Failed     int64
	Skipped    int64
	Cancelled  int64
	Bytes      int64
	StartedAt  time.Time
	Elapsed    time.Duration
}

// Snapshot captures the counters into a Summary.
func (c *Counters) Snapshot() Summary {
	return Summary{
		Discovered: c.Discovered.Load(),
		Completed:  c.Completed.Load(),
		Failed:     c.Failed.Load(),
		Skipped:    c.Skipped.Load(),
		Cancelled:  c.Cancelled.Load(),
		Bytes:      c.Bytes.Load(),
	}
}

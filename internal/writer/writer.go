// Package writer streams response bodies to disk. All filesystem access
// goes through afero so tests run against an in-memory FS.
package writer

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/scour-dl/scour/internal/engine/events"
	"github.com/scour-dl/scour/internal/engine/types"
)

// ChunkSize is the fixed read size of the streaming loop.
const ChunkSize = 64 * 1024

// Characters replaced with '_' in filenames. The set (plus the
// zero-width space) is an on-disk contract: changing it breaks
// skip-if-exists against previously downloaded trees.
const invalidFilenameChars = `<>:"/\|?*` + "\u200b"

// SanitizeFilename replaces filesystem-hostile characters with
// underscores. Idempotent.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
}

// FilenameFromURL derives a filename from the URL path's last segment,
// query stripped. Returns "" when the path has no usable segment.
func FilenameFromURL(rawurl string) string {
	p := rawurl
	if u, err := url.Parse(rawurl); err == nil {
		p = u.Path
	} else if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return SanitizeFilename(name)
}

// Writer copies media streams into their destination files, reporting
// chunk-level progress on the events channel.
type Writer struct {
	fs     afero.Fs
	events chan<- any
}

func New(fs afero.Fs, eventsCh chan<- any) *Writer {
	return &Writer{fs: fs, events: eventsCh}
}

// Fs exposes the backing filesystem for directory management.
func (w *Writer) Fs() afero.Fs {
	return w.fs
}

// Exists reports whether a non-empty file already sits at destPath.
// Such tasks are skipped before any network I/O.
func (w *Writer) Exists(destPath string) bool {
	info, err := w.fs.Stat(destPath)
	return err == nil && info.Size() > 0
}

func (w *Writer) emit(msg any) {
	if w.events != nil {
		w.events <- msg
	}
}

// Write streams body into the task's destination path in fixed chunks,
// updating the task byte counters after every chunk. A partial file is
// removed on any failure or cancellation.
func (w *Writer) Write(ctx context.Context, task *types.MediaTask, body io.Reader) error {
	if err := w.fs.MkdirAll(filepath.Dir(task.DestPath), 0o755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	out, err := w.fs.Create(task.DestPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			_ = w.fs.Remove(task.DestPath)
		}
	}()

	start := time.Now()
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		nr, readErr := body.Read(buf)
		if nr > 0 {
			nw, writeErr := out.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
				task.BytesDone.Store(written)
				w.emitProgress(task, written, start)
			}
			if writeErr != nil {
				return fmt.Errorf("write: %w", writeErr)
			}
			if nr != nw {
				return io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", readErr)
		}
	}

	if total := task.BytesTotal.Load(); total > 0 && written != total {
		return fmt.Errorf("short body: got %d of %d bytes", written, total)
	}

	success = true
	return nil
}

func (w *Writer) emitProgress(task *types.MediaTask, written int64, start time.Time) {
	total := task.BytesTotal.Load()
	elapsed := time.Since(start).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(written) / elapsed
	}
	var eta time.Duration
	if total > 0 && speed > 0 {
		eta = time.Duration(float64(total-written)/speed) * time.Second
	}
	w.emit(events.TaskProgressMsg{
		TaskID:    task.ID,
		BytesDone: written,
		Total:     total,
		Speed:     speed,
		ETA:       eta,
	})
}

// Package engine owns the lifecycle of one download session: classify
// the entry URL, discover media through the site pipeline, and drive a
// bounded worker pool until every task reaches a terminal state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/scour-dl/scour/internal/engine/events"
	"github.com/scour-dl/scour/internal/engine/types"
	"github.com/scour-dl/scour/internal/extract"
	"github.com/scour-dl/scour/internal/fetch"
	"github.com/scour-dl/scour/internal/pipeline"
	"github.com/scour-dl/scour/internal/pool"
	"github.com/scour-dl/scour/internal/utils"
	"github.com/scour-dl/scour/internal/writer"
)

var (
	// ErrRootNotWritable means the destination root folder could not be
	// created or written to.
	ErrRootNotWritable = errors.New("root folder is not writable")
	// ErrRootBusy means another session already holds the root folder.
	ErrRootBusy = errors.New("root folder is locked by another session")
	// ErrEntryFetch wraps a failure to fetch or parse the entry page.
	ErrEntryFetch = errors.New("entry page fetch failed")
)

const lockFilename = ".scour.lock"

// newFetchClient is swapped in tests to route requests at a test server.
var newFetchClient = fetch.NewClient

// Session is one running download. Create with Start, stop early with
// Cancel, and collect the outcome with Wait.
type Session struct {
	site     types.Site
	entryURL string
	opts     types.Options

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once

	events chan<- any
	client *fetch.Client
	writer *writer.Writer
	pool   *pool.Pool
	lock   *flock.Flock

	counters  types.Counters
	terminal  sync.Mutex // serializes terminal accounting and its events
	startedAt time.Time

	mu        sync.Mutex
	seenMedia map[string]struct{}
	seenPages map[string]struct{}
	tasks     []*types.MediaTask

	done    chan struct{}
	summary types.Summary
	runErr  error
}

// Start validates the entry URL and root folder, then launches discovery
// and downloading in the background. Classification and root folder
// errors are returned synchronously; everything after that is reported
// through eventsCh and Wait.
func Start(ctx context.Context, entryURL string, opts types.Options, eventsCh chan<- any) (*Session, error) {
	return StartWithFs(ctx, afero.NewOsFs(), entryURL, opts, eventsCh)
}

// StartWithFs is Start with an explicit filesystem, for tests.
func StartWithFs(ctx context.Context, fs afero.Fs, entryURL string, opts types.Options, eventsCh chan<- any) (*Session, error) {
	opts.Normalize()

	site, kind, err := extract.Classify(entryURL)
	if err != nil {
		return nil, err
	}

	root := utils.EnsureAbsPath(opts.RootFolder)
	opts.RootFolder = root
	if err := probeRoot(fs, root); err != nil {
		return nil, err
	}

	var lock *flock.Flock
	if _, real := fs.(*afero.OsFs); real {
		lock = flock.New(filepath.Join(root, lockFilename))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRootBusy, err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrRootBusy, root)
		}
	}

	client, err := newFetchClient(opts.ProxyURL, opts.UserAgent)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		site:      site,
		entryURL:  entryURL,
		opts:      opts,
		ctx:       sctx,
		cancel:    cancel,
		events:    eventsCh,
		client:    client,
		writer:    writer.New(fs, eventsCh),
		lock:      lock,
		startedAt: time.Now(),
		seenMedia: make(map[string]struct{}),
		seenPages: make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	s.pool = pool.New(sctx, opts.MaxConcurrency, s.runTask)

	go s.run(kind)
	return s, nil
}

// probeRoot creates the root folder and verifies it accepts writes.
func probeRoot(fs afero.Fs, root string) error {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrRootNotWritable, err)
	}
	probe := filepath.Join(root, ".scour.probe")
	f, err := fs.Create(probe)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootNotWritable, err)
	}
	f.Close()
	fs.Remove(probe)
	return nil
}

func (s *Session) run(kind types.EntryKind) {
	deps := pipeline.Deps{
		Fetch:     s.client,
		Enqueue:   s.enqueue,
		VisitPage: s.visitPage,
		Warn:      s.warnf,
	}
	err := pipeline.Run(s.ctx, s.site, kind, s.entryURL, deps)

	s.pool.Close()
	s.pool.Wait()

	switch {
	case s.ctx.Err() != nil:
		s.runErr = context.Canceled
	case err == nil:
	default:
		s.runErr = fmt.Errorf("%w: %v", ErrEntryFetch, err)
		s.emit(events.LogMsg{Severity: events.LogError, Text: s.runErr.Error()})
	}

	s.summary = s.counters.Snapshot()
	s.summary.Site = s.site
	s.summary.EntryURL = s.entryURL
	s.summary.StartedAt = s.startedAt
	s.summary.Elapsed = time.Since(s.startedAt)
	s.emit(events.FinishedMsg{Summary: s.summary})

	if s.lock != nil {
		s.lock.Unlock()
	}
	close(s.done)
}

// Cancel requests an early stop. Queued tasks are marked cancelled and
// in-flight downloads abort with their partial files removed. Safe to
// call more than once; never blocks.
func (s *Session) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// Wait blocks until the session finishes and returns its summary. The
// error is non-nil when the entry page itself could not be processed or
// the session was cancelled.
func (s *Session) Wait() (types.Summary, error) {
	<-s.done
	return s.summary, s.runErr
}

// Tasks returns every task the session discovered, in admission order.
func (s *Session) Tasks() []*types.MediaTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.MediaTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *Session) emit(msg any) {
	if s.events != nil {
		s.events <- msg
	}
}

func (s *Session) warnf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	utils.Debug("%s", text)
	s.emit(events.LogMsg{Severity: events.LogWarn, Text: text})
}

// visitPage records a follow-up page URL and reports whether it is new.
func (s *Session) visitPage(rawurl string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.seenPages[rawurl]; seen {
		return false
	}
	s.seenPages[rawurl] = struct{}{}
	return true
}

// enqueue admits one media candidate: filter by kind, dedup by URL,
// resolve the destination path, and submit to the pool.
func (s *Session) enqueue(folder pipeline.Folder, c extract.MediaCandidate) {
	if s.ctx.Err() != nil {
		return
	}
	if !s.opts.WantKind(c.Kind) {
		return
	}

	s.mu.Lock()
	if _, seen := s.seenMedia[c.URL]; seen {
		s.mu.Unlock()
		return
	}
	s.seenMedia[c.URL] = struct{}{}
	s.mu.Unlock()

	filename := writer.FilenameFromURL(c.URL)
	generated := filename == ""
	if generated {
		filename = uuid.New().String()
	}

	task := &types.MediaTask{
		ID:            uuid.New().String(),
		SourceURL:     c.URL,
		DestPath:      s.destPath(folder, c.Kind, filename),
		Kind:          c.Kind,
		GeneratedName: generated,
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.counters.Discovered.Add(1)
	s.pool.Submit(task)
}

// destPath maps a task into the configured folder layout. The per-post
// layout needs a post identifier; entries without one fall back to the
// default layout.
func (s *Session) destPath(folder pipeline.Folder, kind types.MediaKind, filename string) string {
	dir := writer.SanitizeFilename(strings.TrimSpace(folder.Hint))
	if dir == "" {
		dir = s.site.String() + "_download"
	}
	parts := []string{s.opts.RootFolder, dir}
	if s.opts.Layout == types.LayoutPerPost && folder.PostID != "" {
		parts = append(parts, writer.SanitizeFilename(folder.PostID))
	}
	parts = append(parts, kind.GroupDir(), filename)
	return filepath.Join(parts...)
}

// runTask drives one task to a terminal state. Runs on a pool worker.
func (s *Session) runTask(ctx context.Context, task *types.MediaTask) {
	if ctx.Err() != nil {
		s.finish(task, types.StateCancelled, nil)
		return
	}

	if s.writer.Exists(task.DestPath) {
		s.finish(task, types.StateSkipped, nil)
		return
	}

	task.Transition(types.StateActive)

	stream, err := s.client.FetchStream(ctx, task.SourceURL)
	if err != nil {
		if ctx.Err() != nil {
			s.finish(task, types.StateCancelled, nil)
			return
		}
		s.warnf("download failed for %s: %v", task.SourceURL, err)
		s.finish(task, types.StateFailed, err)
		return
	}
	defer stream.Close()

	if task.GeneratedName {
		if name := writer.SanitizeFilename(stream.Filename()); name != "" {
			task.DestPath = filepath.Join(filepath.Dir(task.DestPath), name)
			if s.writer.Exists(task.DestPath) {
				s.finish(task, types.StateSkipped, nil)
				return
			}
		}
	}

	task.Attempts.Store(int32(stream.Attempts))
	if stream.ContentLength > 0 {
		task.BytesTotal.Store(stream.ContentLength)
	}
	s.emit(events.TaskStartedMsg{
		TaskID:   task.ID,
		URL:      task.SourceURL,
		Filename: filepath.Base(task.DestPath),
		Total:    task.BytesTotal.Load(),
	})

	if err := s.writer.Write(ctx, task, stream.Body); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			s.finish(task, types.StateCancelled, nil)
			return
		}
		s.warnf("write failed for %s: %v", task.SourceURL, err)
		s.finish(task, types.StateFailed, err)
		return
	}

	s.counters.Bytes.Add(task.BytesDone.Load())
	s.finish(task, types.StateDone, nil)
}

// finish records the terminal state, updates the counters and publishes
// the per-task and global progress messages.
func (s *Session) finish(task *types.MediaTask, state types.TaskState, err error) {
	task.Transition(state)

	s.terminal.Lock()
	defer s.terminal.Unlock()

	switch state {
	case types.StateDone:
		s.counters.Completed.Add(1)
	case types.StateFailed:
		s.counters.Failed.Add(1)
	case types.StateSkipped:
		s.counters.Skipped.Add(1)
	case types.StateCancelled:
		s.counters.Cancelled.Add(1)
	}

	s.emit(events.TaskDoneMsg{
		TaskID:   task.ID,
		Filename: filepath.Base(task.DestPath),
		State:    state,
		Err:      err,
	})

	done := s.counters.Completed.Load() + s.counters.Failed.Load() +
		s.counters.Skipped.Load() + s.counters.Cancelled.Load()
	s.emit(events.GlobalProgressMsg{
		Completed: done,
		Total:     s.counters.Discovered.Load(),
	})
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/scour-dl/scour/internal/engine/events"
	"github.com/scour-dl/scour/internal/engine/types"
)

const humanizeRound = 100 * time.Millisecond

// renderer consumes engine events and presents them to the terminal.
type renderer interface {
	OnEvent(msg any)
	Wait()
}

func newRenderer(quiet bool) renderer {
	if quiet {
		return &quietRenderer{}
	}
	return newBarRenderer()
}

// quietRenderer surfaces only warnings and errors.
type quietRenderer struct{}

func (quietRenderer) OnEvent(msg any) {
	if log, ok := msg.(events.LogMsg); ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", log.Severity, log.Text)
	}
}

func (quietRenderer) Wait() {}

// barRenderer shows one progress bar per active download.
type barRenderer struct {
	progress *mpb.Progress
	bars     map[string]*barState
}

type barState struct {
	bar  *mpb.Bar
	done int64
}

func newBarRenderer() *barRenderer {
	return &barRenderer{
		progress: mpb.New(mpb.WithWidth(48), mpb.WithOutput(os.Stderr)),
		bars:     make(map[string]*barState),
	}
}

// OnEvent is called from a single consumer goroutine, so the bars map
// needs no locking.
func (r *barRenderer) OnEvent(msg any) {
	switch m := msg.(type) {
	case events.TaskStartedMsg:
		bar := r.progress.AddBar(m.Total,
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(
				decor.Name(truncateName(m.Filename, 32), decor.WC{W: 34, C: decor.DidentRight}),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f"),
				decor.Name(" "),
				decor.AverageSpeed(decor.UnitKiB, "% .1f"),
			),
		)
		r.bars[m.TaskID] = &barState{bar: bar}

	case events.TaskProgressMsg:
		st, ok := r.bars[m.TaskID]
		if !ok {
			return
		}
		if m.Total > 0 {
			st.bar.SetTotal(m.Total, false)
		}
		if delta := m.BytesDone - st.done; delta > 0 {
			st.bar.IncrInt64(delta)
			st.done = m.BytesDone
		}

	case events.TaskDoneMsg:
		st, ok := r.bars[m.TaskID]
		if ok {
			delete(r.bars, m.TaskID)
			if m.State == types.StateDone {
				st.bar.SetTotal(st.done, true)
			} else {
				st.bar.Abort(true)
			}
		}
		switch m.State {
		case types.StateFailed:
			fmt.Fprintf(os.Stderr, "failed    %s: %v\n", m.Filename, m.Err)
		case types.StateSkipped:
			fmt.Fprintf(os.Stderr, "skipped   %s (already present)\n", m.Filename)
		case types.StateCancelled:
			fmt.Fprintf(os.Stderr, "cancelled %s\n", m.Filename)
		}

	case events.LogMsg:
		fmt.Fprintf(os.Stderr, "%s: %s\n", m.Severity, m.Text)
	}
}

func (r *barRenderer) Wait() {
	// Abort anything still on screen so the container can drain.
	for id, st := range r.bars {
		st.bar.Abort(true)
		delete(r.bars, id)
	}
	r.progress.Wait()
}

func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max-3] + "..."
}

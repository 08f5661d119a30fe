package events

import (
	"time"

	"github.com/scour-dl/scour/internal/engine/types"
)

// Messages published by the engine on its progress channel. Consumers may
// ignore any variant. Per-task messages are totally ordered for a given
// TaskID; no cross-task ordering is guaranteed.

// TaskStartedMsg is sent when a worker begins streaming a task.
type TaskStartedMsg struct {
	TaskID   string
	URL      string
	Filename string
	Total    int64 // 0 when the server did not report a length
}

// TaskProgressMsg reports chunk-level progress for one task.
type TaskProgressMsg struct {
	TaskID    string
	BytesDone int64
	Total     int64
	Speed     float64 // bytes per second
	ETA       time.Duration
}

// TaskDoneMsg is sent once per task when it reaches a terminal state.
type TaskDoneMsg struct {
	TaskID   string
	Filename string
	State    types.TaskState
	Err      error
}

// GlobalProgressMsg reports session-wide completion counts.
type GlobalProgressMsg struct {
	Completed int64 // tasks in any terminal state
	Total     int64 // tasks discovered so far
}

// LogSeverity classifies LogMsg lines.
type LogSeverity int

const (
	LogInfo LogSeverity = iota
	LogWarn
	LogError
)

func (s LogSeverity) String() string {
	switch s {
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	}
	return "INFO"
}

// LogMsg is a user-visible log line.
type LogMsg struct {
	Severity LogSeverity
	Text     string
}

// FinishedMsg is the last message of a session.
type FinishedMsg struct {
	Summary types.Summary
}

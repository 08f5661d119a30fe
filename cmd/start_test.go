package cmd

import (
	"context"
	"fmt"
	"testing"

	"github.com/scour-dl/scour/internal/engine"
	"github.com/scour-dl/scour/internal/engine/types"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name        string
		summary     types.Summary
		runErr      error
		interrupted bool
		want        int
	}{
		{
			name:    "clean run",
			summary: types.Summary{Discovered: 3, Completed: 3},
			want:    exitOK,
		},
		{
			name: "empty profile",
			want: exitOK,
		},
		{
			name:    "partial failures still succeed",
			summary: types.Summary{Discovered: 4, Completed: 3, Failed: 1},
			want:    exitOK,
		},
		{
			name:    "all skipped is a success",
			summary: types.Summary{Discovered: 3, Skipped: 3},
			want:    exitOK,
		},
		{
			name:    "every task failed",
			summary: types.Summary{Discovered: 5, Failed: 5},
			want:    exitAllFailed,
		},
		{
			name:   "entry page failure",
			runErr: fmt.Errorf("%w: status 404", engine.ErrEntryFetch),
			want:   exitAllFailed,
		},
		{
			name:        "interrupt",
			summary:     types.Summary{Discovered: 2, Completed: 1, Cancelled: 1},
			interrupted: true,
			want:        exitInterrupted,
		},
		{
			name:    "cancelled session",
			summary: types.Summary{Discovered: 2, Cancelled: 2},
			runErr:  context.Canceled,
			want:    exitInterrupted,
		},
		{
			name:        "interrupt outranks all-failed",
			summary:     types.Summary{Discovered: 3, Failed: 3},
			interrupted: true,
			want:        exitInterrupted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := exitCodeFor(tc.summary, tc.runErr, tc.interrupted)
			if got != tc.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tc.want)
			}
		})
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scour-dl/scour/internal/config"
	"github.com/scour-dl/scour/internal/engine"
	"github.com/scour-dl/scour/internal/engine/state"
	"github.com/scour-dl/scour/internal/engine/types"
	"github.com/scour-dl/scour/internal/extract"
	"github.com/scour-dl/scour/internal/utils"
)

// Exit codes of the start command. exitAllFailed covers both an entry
// page that could not be fetched and a run where every task failed.
const (
	exitOK          = 0
	exitBadEntry    = 2
	exitBadRoot     = 3
	exitAllFailed   = 4
	exitInterrupted = 130
)

var startFlags struct {
	out         string
	concurrency int
	layout      string
	noImages    bool
	noVideos    bool
	noArchives  bool
	noDocs      bool
	proxy       string
	clipboard   bool
	quiet       bool
}

var startCmd = &cobra.Command{
	Use:   "start [url]",
	Short: "Download all media behind a profile, album or thread URL",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runStart(cmd, args))
	},
}

func init() {
	f := startCmd.Flags()
	f.StringVarP(&startFlags.out, "out", "o", "", "destination root folder (default: SCOUR_OUT or ./downloads)")
	f.IntVarP(&startFlags.concurrency, "concurrency", "c", 0, "parallel downloads, 1-10 (default: settings.json)")
	f.StringVar(&startFlags.layout, "layout", "", "folder layout: default or per-post (default: settings.json)")
	f.BoolVar(&startFlags.noImages, "no-images", false, "skip image files")
	f.BoolVar(&startFlags.noVideos, "no-videos", false, "skip video files")
	f.BoolVar(&startFlags.noArchives, "no-archives", false, "skip archive files")
	f.BoolVar(&startFlags.noDocs, "no-docs", false, "skip document and unclassified files")
	f.StringVar(&startFlags.proxy, "proxy", "", "http(s) or socks5 proxy URL (default: SCOUR_PROXY)")
	f.BoolVar(&startFlags.clipboard, "clipboard", false, "read the entry URL from the clipboard")
	f.BoolVarP(&startFlags.quiet, "quiet", "q", false, "no progress bars, summary only")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) int {
	entryURL, err := entryFromArgs(args)
	if err != nil {
		cmd.PrintErrf("error: %v\n", err)
		return exitBadEntry
	}

	opts := buildOptions()

	events := make(chan any, 64)
	session, err := engine.Start(context.Background(), entryURL, opts, events)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedURL):
			cmd.PrintErrf("error: %v\n", err)
			return exitBadEntry
		case errors.Is(err, engine.ErrRootNotWritable), errors.Is(err, engine.ErrRootBusy):
			cmd.PrintErrf("error: %v\n", err)
			return exitBadRoot
		default:
			cmd.PrintErrf("error: %v\n", err)
			return exitBadEntry
		}
	}

	interrupted := handleInterrupt(session)

	renderer := newRenderer(startFlags.quiet)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for msg := range events {
			renderer.OnEvent(msg)
		}
	}()

	summary, runErr := session.Wait()
	close(events)
	<-consumerDone
	renderer.Wait()

	recordHistory(cmd, summary, session)
	printSummary(cmd, summary)

	return exitCodeFor(summary, runErr, interrupted())
}

// exitCodeFor maps a finished session onto the start command's exit
// codes: 130 on interrupt or cancellation, 4 when nothing was fetched
// (entry page failure, or every discovered task failed), 0 otherwise.
func exitCodeFor(summary types.Summary, runErr error, interrupted bool) int {
	switch {
	case interrupted, errors.Is(runErr, context.Canceled):
		return exitInterrupted
	case errors.Is(runErr, engine.ErrEntryFetch):
		return exitAllFailed
	case summary.Discovered > 0 && summary.Failed == summary.Discovered:
		return exitAllFailed
	}
	return exitOK
}

// entryFromArgs resolves the entry URL from the positional argument or,
// with --clipboard, from the system clipboard.
func entryFromArgs(args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if startFlags.clipboard {
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("read clipboard: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errors.New("clipboard is empty")
		}
		return text, nil
	}
	return "", errors.New("an entry URL is required (or pass --clipboard)")
}

// buildOptions layers flags over settings.json over environment defaults.
func buildOptions() types.Options {
	root := startFlags.out
	if root == "" {
		root = os.Getenv("SCOUR_OUT")
	}
	if root == "" {
		root = "downloads"
	}

	opts := types.DefaultOptions(root)
	opts.MaxConcurrency = settings.MaxDownloads
	opts.Layout = settings.Layout()

	if startFlags.concurrency != 0 {
		opts.MaxConcurrency = startFlags.concurrency
	}
	if startFlags.layout != "" {
		if layout, ok := types.ParseLayout(startFlags.layout); ok {
			opts.Layout = layout
		}
	}
	opts.DownloadImages = !startFlags.noImages
	opts.DownloadVideos = !startFlags.noVideos
	opts.DownloadArchives = !startFlags.noArchives
	opts.DownloadDocuments = !startFlags.noDocs

	opts.ProxyURL = startFlags.proxy
	if opts.ProxyURL == "" {
		opts.ProxyURL = os.Getenv("SCOUR_PROXY")
	}
	return opts
}

// handleInterrupt cancels the session on the first SIGINT/SIGTERM and
// returns a func reporting whether an interrupt arrived.
func handleInterrupt(session *engine.Session) func() bool {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	var hit bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := <-sigCh; ok {
			hit = true
			session.Cancel()
		}
	}()
	return func() bool {
		signal.Stop(sigCh)
		close(sigCh)
		<-done
		return hit
	}
}

func recordHistory(cmd *cobra.Command, summary types.Summary, session *engine.Session) {
	hist, err := state.Open(config.GetHistoryPath())
	if err != nil {
		utils.Debug("history unavailable: %v", err)
		return
	}
	defer hist.Close()
	if err := hist.RecordSession(summary, session.Tasks()); err != nil {
		cmd.PrintErrf("warning: could not record history: %v\n", err)
	}
}

func printSummary(cmd *cobra.Command, s types.Summary) {
	cmd.Printf("\n%s: %d found, %d downloaded, %d skipped, %d failed, %d cancelled, %s in %s\n",
		s.Site, s.Discovered, s.Completed, s.Skipped, s.Failed, s.Cancelled,
		humanize.Bytes(uint64(s.Bytes)), s.Elapsed.Round(humanizeRound))
}

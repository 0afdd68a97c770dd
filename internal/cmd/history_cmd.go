package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/hiconvert/internal/storage"
	"github.com/runger/hiconvert/internal/tui"
)

var (
	historyLimit  int
	historyStatus string
	historySince  time.Duration
	historyFormat string

	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:     "history [file]",
	Short:   "Show past submissions",
	GroupID: groupCore,
	Long: `Show submissions recorded in the local history database.

With a file argument, only submissions that sent a file whose name
contains it (case-insensitive) are shown.

Examples:
  hiconvert history                   # Last 20 submissions
  hiconvert history -n 50 --status error
  hiconvert history --since 24h plan
  hiconvert history show 3f2a         # Details by id prefix
  hiconvert history prune --older-than 720h`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one submission and its per-file results",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old submissions",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum number of submissions to show (default history.list_limit)")
	historyCmd.Flags().StringVarP(&historyStatus, "status", "s", "", "Filter by status: success, error")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "Only submissions newer than this (e.g. 24h)")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format: text, json")

	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 0, "Age cutoff (default history.retention_days)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

// openHistory opens a session and fails when history is off.
func openHistory(cmd *cobra.Command) (*session, error) {
	s, err := openSession(commandContext(cmd))
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		s.Close()
		return nil, errors.New("history is disabled (set history.enabled true)")
	}
	return s, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	switch historyStatus {
	case "", storage.StatusSuccess, storage.StatusError:
	default:
		return fmt.Errorf("invalid --status %q (want success or error)", historyStatus)
	}
	if historyFormat != "text" && historyFormat != "json" {
		return fmt.Errorf("invalid --format %q (want text or json)", historyFormat)
	}

	s, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q := storage.SubmissionQuery{
		Status: historyStatus,
		Limit:  historyLimit,
	}
	if q.Limit <= 0 {
		q.Limit = s.cfg.History.ListLimit
	}
	if historySince > 0 {
		q.SinceMs = time.Now().Add(-historySince).UnixMilli()
	}
	if len(args) > 0 {
		q.FileMatch = args[0]
	}

	subs, err := s.store.QuerySubmissions(commandContext(cmd), q)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}

	if historyFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if subs == nil {
			subs = []storage.Submission{}
		}
		return enc.Encode(subs)
	}

	if len(subs) == 0 {
		if len(args) > 0 {
			fmt.Printf("No submissions found with a file matching '%s'\n", args[0])
		} else {
			fmt.Println("No submissions recorded yet.")
		}
		return nil
	}

	// Oldest at top, as in a terminal scrollback.
	width := termWidth(os.Stdout)
	for i := len(subs) - 1; i >= 0; i-- {
		printSubmission(subs[i], width)
	}

	fmt.Println()
	fmt.Printf("%sShowing %d submission(s)%s\n", colorDim, len(subs), colorReset)
	return nil
}

func printSubmission(sub storage.Submission, width int) {
	timestamp := time.UnixMilli(sub.StartedAtUnixMs).Format("2006-01-02 15:04:05")

	status := colorGreen + "ok " + colorReset
	if sub.Status == storage.StatusError {
		status = colorRed + "err" + colorReset
	}

	summary := fmt.Sprintf("%d file(s)", sub.FileCount)
	switch {
	case sub.Error != "":
		summary += ": " + sub.Error
	case sub.Notice != "":
		summary += ": " + sub.Notice
	}
	summary = tui.Clean(summary)
	if width > 0 {
		// timestamp, id, status and duration take about 45 columns
		summary = tui.Truncate(summary, max(width-45, 20))
	}

	fmt.Printf("%s%s%s  %s  [%s]  %s  %s(%s)%s\n",
		colorDim, timestamp, colorReset,
		shortID(sub.SubmissionID),
		status,
		summary,
		colorDim, formatDurationMs(sub.DurationMs), colorReset,
	)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	sub, err := s.store.GetSubmissionByPrefix(commandContext(cmd), args[0])
	switch {
	case errors.Is(err, storage.ErrSubmissionNotFound):
		return fmt.Errorf("no submission matches %q", args[0])
	case errors.Is(err, storage.ErrAmbiguousPrefix):
		return fmt.Errorf("%q matches more than one submission; use a longer prefix", args[0])
	case err != nil:
		return err
	}

	fmt.Printf("%sSubmission%s %s\n", colorBold, colorReset, sub.SubmissionID)
	fmt.Printf("  started:  %s\n", time.UnixMilli(sub.StartedAtUnixMs).Format(time.RFC3339))
	fmt.Printf("  duration: %s\n", formatDurationMs(sub.DurationMs))
	fmt.Printf("  endpoint: %s\n", sub.Endpoint)
	fmt.Printf("  files:    %s\n", tui.Clean(strings.Join(sub.Files, ", ")))
	if sub.Status == storage.StatusError {
		fmt.Printf("  status:   %serror%s %s\n", colorRed, colorReset, tui.Clean(sub.Error))
		return nil
	}
	fmt.Printf("  status:   %ssuccess%s\n", colorGreen, colorReset)
	if sub.Notice != "" {
		fmt.Printf("  message:  %s\n", tui.Clean(sub.Notice))
	}

	if len(sub.Outcomes) > 0 {
		fmt.Println()
	}
	for _, o := range sub.Outcomes {
		msg := tui.Clean(o.Message)
		if o.Status == "error" {
			msg = colorRed + msg + colorReset
		}
		fmt.Printf("  %s: %s\n", tui.Clean(o.File), msg)
		if o.DownloadURL != "" {
			fmt.Printf("    %s%s%s\n", colorCyan, o.DownloadURL, colorReset)
		}
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	s, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	cutoff := historyOlderThan
	if cutoff <= 0 {
		cutoff = time.Duration(s.cfg.History.RetentionDays) * 24 * time.Hour
	}
	if cutoff <= 0 {
		fmt.Println("Retention is unlimited; nothing to prune. Pass --older-than to prune anyway.")
		return nil
	}

	n, err := storage.Prune(commandContext(cmd), s.store, cutoff, time.Now())
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	fmt.Printf("Pruned %d submission(s) older than %s\n", n, cutoff)
	return nil
}

// shortID is the display form of a submission id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

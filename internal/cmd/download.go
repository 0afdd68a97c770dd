package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/hiconvert/internal/storage"
	"github.com/runger/hiconvert/internal/widget"
)

var (
	downloadDir  string
	downloadFrom string
)

var downloadCmd = &cobra.Command{
	Use:     "download [csv_path|url]...",
	Short:   "Save generated CSV files",
	GroupID: groupCore,
	Long: `Download CSV files produced by the conversion service.

Arguments are csv_path values as returned by the server (they are joined
to server.download_path with each segment escaped) or absolute URLs.
With --from, every artifact of a recorded submission is downloaded.

Existing files are never overwritten; " (1)", " (2)", ... is appended.

Examples:
  hiconvert download "plans/plan a.csv"
  hiconvert download --dir ~/tables http://localhost:10000/download/x.csv
  hiconvert download --from 3f2a        # Submission id prefix`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "", "Target directory (default upload.download_dir)")
	downloadCmd.Flags().StringVar(&downloadFrom, "from", "", "Download all artifacts of a submission (id or prefix)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && downloadFrom == "" {
		return errors.New("nothing to download: pass a csv_path, a URL or --from")
	}

	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if downloadDir != "" {
		s.cfg.Upload.DownloadDir = downloadDir
	}

	var entries []widget.Entry
	for _, arg := range args {
		entries = append(entries, widget.Entry{File: arg, DownloadURL: resolveDownloadURL(s.cfg.DownloadBase(), arg)})
	}

	if downloadFrom != "" {
		if s.store == nil {
			return errors.New("history is disabled; --from needs history.enabled")
		}
		sub, err := s.store.GetSubmissionByPrefix(ctx, downloadFrom)
		if err != nil {
			if errors.Is(err, storage.ErrSubmissionNotFound) {
				return fmt.Errorf("no submission matches %q", downloadFrom)
			}
			return err
		}
		n := 0
		for _, o := range sub.Outcomes {
			if o.DownloadURL != "" {
				entries = append(entries, widget.Entry{File: o.File, DownloadURL: o.DownloadURL})
				n++
			}
		}
		if n == 0 {
			fmt.Printf("Submission %s has no downloadable files.\n", shortID(sub.SubmissionID))
		}
	}

	return downloadEntries(cmd, s, entries)
}

// resolveDownloadURL turns a csv_path into a link under base. Absolute
// http(s) URLs are used as they are.
func resolveDownloadURL(base, arg string) string {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg
	}
	return widget.DownloadLink(base, arg)
}

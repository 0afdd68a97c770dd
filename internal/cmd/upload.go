package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/hiconvert/internal/download"
	"github.com/runger/hiconvert/internal/tui"
	"github.com/runger/hiconvert/internal/widget"
)

var (
	uploadFormat   string
	uploadFilter   string
	uploadSingle   bool
	uploadAll      bool
	uploadDownload bool
)

var uploadCmd = &cobra.Command{
	Use:     "upload <file>...",
	Short:   "Convert files and print the results",
	GroupID: groupCore,
	Long: `Send files to the conversion service in one request and print the
per-file results with their download links.

Progress and errors go to stderr; results go to stdout.

Examples:
  hiconvert upload plan-a.pdf plan-b.pdf
  hiconvert upload --filter pdf-ext scans/*.pdf
  hiconvert upload --format json plan.pdf | jq '.results[].download_url'
  hiconvert upload --download plan.pdf      # Also save the CSVs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadFormat, "format", "f", "text", "Output format: text, json, html")
	uploadCmd.Flags().StringVar(&uploadFilter, "filter", "", "Filter preset: none, pdf-mime, pdf-ext, plan-pdf")
	uploadCmd.Flags().BoolVar(&uploadSingle, "single", false, "Single-file mode (field \"file\", first file only)")
	uploadCmd.Flags().BoolVar(&uploadAll, "all", false, "Send non-matching files too")
	uploadCmd.Flags().BoolVarP(&uploadDownload, "download", "d", false, "Save generated CSVs to upload.download_dir")
}

func runUpload(cmd *cobra.Command, args []string) error {
	switch uploadFormat {
	case "text", "json", "html":
	default:
		return fmt.Errorf("invalid --format %q (want text, json or html)", uploadFormat)
	}

	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if uploadFilter != "" {
		s.cfg.Upload.Filter = uploadFilter
	}
	if uploadSingle {
		s.cfg.Upload.Multiple = false
	}
	if uploadAll {
		s.cfg.Upload.FilterUpload = false
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	opts, err := s.widgetOptions()
	if err != nil {
		return err
	}

	files, err := widget.FilesFromPaths(args)
	if err != nil {
		return err
	}

	view := tui.NewLineView(os.Stderr, colorProfile(os.Stderr), termWidth(os.Stderr))
	w := widget.New(view, opts)
	if err := w.Dispatch(ctx, widget.FilesChosen{Files: files}); err != nil {
		return err
	}

	r, err := w.Submit(ctx)
	if err != nil {
		// The view has printed the message.
		return errReported
	}

	if err := writeRendering(os.Stdout, *r, uploadFormat); err != nil {
		return err
	}

	if uploadDownload {
		return downloadEntries(cmd, s, r.Entries)
	}
	return nil
}

// writeRendering prints r in the requested format.
func writeRendering(out io.Writer, r widget.Rendering, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toOutput(r))
	case "html":
		return widget.RenderHTML(out, r)
	default:
		return tui.PrintResults(out, r, colorProfile(os.Stdout))
	}
}

// renderingOutput is the JSON form of a widget.Rendering.
type renderingOutput struct {
	Notice  string        `json:"notice,omitempty"`
	Results []entryOutput `json:"results"`
}

type entryOutput struct {
	File        string `json:"file"`
	Message     string `json:"message"`
	Status      string `json:"status,omitempty"`
	CSVPath     string `json:"csv_path,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func toOutput(r widget.Rendering) renderingOutput {
	out := renderingOutput{Notice: r.Notice, Results: make([]entryOutput, 0, len(r.Entries))}
	for _, e := range r.Entries {
		out.Results = append(out.Results, entryOutput{
			File:        e.File,
			Message:     e.Message,
			Status:      e.Status,
			CSVPath:     e.CSVPath,
			DownloadURL: e.DownloadURL,
		})
	}
	return out
}

// downloadEntries saves every artifact in entries. Failures are reported
// per file; the first one is returned after all downloads were attempted.
func downloadEntries(cmd *cobra.Command, s *session, entries []widget.Entry) error {
	client := download.New(nil, s.logger)
	var firstErr error
	for _, e := range entries {
		if e.DownloadURL == "" {
			continue
		}
		res, err := client.Fetch(commandContext(cmd), e.DownloadURL, s.cfg.Upload.DownloadDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%sFailed:%s %s: %v\n", colorRed, colorReset, e.File, err)
			if firstErr == nil {
				firstErr = errReported
			}
			continue
		}
		fmt.Fprintf(os.Stderr, "Saved %s (%s)\n", res.Path, formatSize(res.Bytes))
	}
	return firstErr
}

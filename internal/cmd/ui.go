package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/runger/hiconvert/internal/download"
	"github.com/runger/hiconvert/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:     "ui [file]...",
	Short:   "Open the interactive upload screen",
	GroupID: groupCore,
	Long: `Open a full-screen upload widget in the terminal.

Drag files from a file manager onto the terminal window, or type paths
and press Enter. Press Enter on an empty line (or ctrl+s) to submit.
Select a result with the arrow keys and press ctrl+d to save its CSV.

Logs go to the log file (see 'hiconvert config log.file').`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := s.widgetOptions()
	if err != nil {
		return err
	}

	model := tui.NewModel(ctx, opts, tui.Options{
		Downloader:  download.New(nil, s.logger),
		DownloadDir: s.cfg.Upload.DownloadDir,
		Logger:      s.logger,
	}).WithPaths(args)
	defer model.Close()

	// Package-level styles use the default renderer; point it at the real
	// terminal profile, honoring --color.
	lipgloss.SetColorProfile(colorProfile(os.Stdout))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		s.logger.Error("tui exited with error", "error", err)
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Command groups shown in help output.
const (
	groupCore  = "core"
	groupSetup = "setup"
)

// errReported marks an error the user has already seen.
var errReported = errors.New("error already reported")

// serverURL is bound to --server and overrides server.base_url.
var serverURL string

var rootCmd = &cobra.Command{
	Use:   "hiconvert",
	Short: "Upload plan PDFs and fetch the extracted CSV tables",
	Long: `hiconvert - client for the PDF-to-CSV conversion service
  - hiconvert ui            drop files in an interactive terminal UI
  - hiconvert upload *.pdf  convert in one shot and print the links`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch colorMode {
		case "auto", "always", "never":
		default:
			return fmt.Errorf("invalid --color %q (want auto, always or never)", colorMode)
		}
		applyColorMode()
		return nil
	},
}

// Execute runs the root command and prints any error not yet shown.
// SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", colorRed, colorReset, err)
	}
	return err
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)
	rootCmd.SetHelpCommandGroupID(groupSetup)
	rootCmd.SetCompletionCommandGroupID(groupSetup)

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Conversion service base URL (overrides server.base_url)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Colorize output: auto, always, never")

	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

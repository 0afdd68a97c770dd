package cmd

import (
	"os"
	"runtime"
	"strconv"

	"github.com/muesli/termenv"
)

// ANSI color codes for terminal output. applyColorMode sets or clears them
// according to --color.
var (
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan   = "\033[0;36m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// colorMode is bound to the --color flag: auto, always or never.
var colorMode = "auto"

func init() {
	applyColorMode()
}

func applyColorMode() {
	switch colorMode {
	case "always":
		enableColors()
	case "never":
		disableColors()
	default:
		if shouldDisableColors() {
			disableColors()
		} else {
			enableColors()
		}
	}
}

func enableColors() {
	colorRed = "\033[0;31m"
	colorGreen = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan = "\033[0;36m"
	colorDim = "\033[2m"
	colorBold = "\033[1m"
	colorReset = "\033[0m"
}

func disableColors() {
	colorRed = ""
	colorGreen = ""
	colorYellow = ""
	colorCyan = ""
	colorDim = ""
	colorBold = ""
	colorReset = ""
}

func shouldDisableColors() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}

	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" || os.Getenv("TERM_PROGRAM") != "" {
			return false
		}
		// Older consoles only understand ANSI through a shim.
		return os.Getenv("ANSICON") == "" && os.Getenv("ConEmuANSI") != "ON"
	}

	return termenv.NewOutput(os.Stdout).ColorProfile() == termenv.Ascii
}

// colorProfile returns the lipgloss color profile for output written to f.
func colorProfile(f *os.File) termenv.Profile {
	switch colorMode {
	case "never":
		return termenv.Ascii
	case "always":
		if p := termenv.NewOutput(f).ColorProfile(); p != termenv.Ascii {
			return p
		}
		return termenv.ANSI256
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return termenv.Ascii
	}
	return termenv.NewOutput(f).EnvColorProfile()
}

// termWidth returns the width of the terminal behind f, then $COLUMNS,
// then 0 when output is not a terminal.
func termWidth(f *os.File) int {
	if w := getTermWidthIoctl(f.Fd()); w > 0 {
		return w
	}
	if w, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && w > 0 {
		return w
	}
	return 0
}

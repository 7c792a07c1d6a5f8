package main

import (
	"os"
)

// init runs before Bubble Tea acquires the terminal.
//
// Lipgloss/Termenv background detection can emit OSC/DSR control sequences
// to stdout. For the non-interactive subcommands that output is meant for
// other programs, so CI=1 is set early, which makes Termenv skip the probes.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("FT_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

// shouldSuppressTTYQueries reports whether args name a subcommand or flag
// whose output is plain text.
func shouldSuppressTTYQueries(args []string, envTest bool) bool {
	if envTest {
		return true
	}
	for _, arg := range args {
		switch arg {
		case "ls", "export", "sources", "version", "--version", "--help", "-h", "help":
			return true
		}
	}
	return false
}

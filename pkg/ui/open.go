package ui

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// editorFinishedMsg is sent when a terminal editor started with
// tea.ExecProcess exits.
type editorFinishedMsg struct {
	path string
	err  error
}

type editorCommandKind int

const (
	editorCommandEmpty editorCommandKind = iota
	editorCommandTerminal
	editorCommandForbidden
	editorCommandGUI
)

// Terminal editors take over the screen; they run through tea.ExecProcess
// with the TUI suspended.
var terminalEditorExecutables = map[string]bool{
	"vi":    true,
	"vim":   true,
	"nvim":  true,
	"nano":  true,
	"emacs": true,
	"micro": true,
	"hx":    true,
	"helix": true,
	"kak":   true,
	"joe":   true,
	"ne":    true,
}

// Shells and interpreters are never run as editors.
var forbiddenEditorExecutables = map[string]bool{
	"sh":         true,
	"bash":       true,
	"zsh":        true,
	"fish":       true,
	"cmd":        true,
	"powershell": true,
	"pwsh":       true,
	"python":     true,
	"python3":    true,
	"node":       true,
	"perl":       true,
	"ruby":       true,
}

func normalizeExecutableBase(executable string) string {
	executable = strings.TrimSpace(executable)
	if executable == "" {
		return ""
	}
	base := executable
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.ToLower(base)
	return strings.TrimSuffix(base, ".exe")
}

func classifyEditorCommand(editorArgs []string) (string, editorCommandKind) {
	if len(editorArgs) == 0 {
		return "", editorCommandEmpty
	}
	base := normalizeExecutableBase(editorArgs[0])
	if base == "" {
		return "", editorCommandEmpty
	}
	if terminalEditorExecutables[base] {
		return base, editorCommandTerminal
	}
	if forbiddenEditorExecutables[base] {
		return base, editorCommandForbidden
	}
	return base, editorCommandGUI
}

// defaultOpener returns the platform command that opens a file with its
// associated application.
func defaultOpener() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"cmd", "/c", "start", ""}
	default:
		return []string{"xdg-open"}
	}
}

// openPath opens target. $VISUAL or $EDITOR wins when set; a terminal
// editor suspends the TUI until it exits, anything else is started in the
// background. The returned description names what was launched.
func openPath(target string) (tea.Cmd, string, error) {
	if _, err := os.Stat(target); err != nil {
		return nil, "", fmt.Errorf("cannot open %s: %w", target, err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	args := strings.Fields(editor)
	if len(args) == 0 {
		args = defaultOpener()
	}

	base, kind := classifyEditorCommand(args)
	switch kind {
	case editorCommandEmpty:
		return nil, "", fmt.Errorf("no editor configured")
	case editorCommandForbidden:
		return nil, "", fmt.Errorf("refusing to run %s as editor (shell/interpreter); set $EDITOR to an editor", base)
	case editorCommandTerminal:
		c := exec.Command(args[0], append(args[1:], target)...)
		return tea.ExecProcess(c, func(err error) tea.Msg {
			return editorFinishedMsg{path: target, err: err}
		}), base, nil
	case editorCommandGUI:
		if _, err := exec.LookPath(args[0]); err != nil {
			return nil, "", fmt.Errorf("%s not found in PATH", args[0])
		}
		c := exec.Command(args[0], append(args[1:], target)...)
		if err := c.Start(); err != nil {
			return nil, "", err
		}
		// Reap the child so it does not linger as a zombie.
		go func() { _ = c.Wait() }()
		return nil, base, nil
	default:
		panic(fmt.Sprintf("ui: unhandled editor kind %d", kind))
	}
}

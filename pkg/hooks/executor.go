package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/vanderheijden86/ft/pkg/debug"
)

// summaryStderrLimit bounds the stderr excerpt shown per failed hook.
const summaryStderrLimit = 200

// HookResult records one hook run.
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Error    error
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs the hooks of a Config with a fixed ExportContext.
type Executor struct {
	config  *Config
	ctx     ExportContext
	results []HookResult
}

// NewExecutor creates an executor for config.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, ctx: ctx}
}

// RunPreExport runs the pre-export hooks in order. The first failing hook
// with the Fail policy stops the run and its error is returned.
func (e *Executor) RunPreExport() error {
	for _, h := range e.config.PreExport {
		r := e.run(h, PreExport)
		if !r.Success && h.OnError != Continue {
			return fmt.Errorf("pre-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook. Failures of Fail-policy hooks
// are collected and returned after all hooks ran.
func (e *Executor) RunPostExport() error {
	var errs []error
	for _, h := range e.config.PostExport {
		r := e.run(h, PostExport)
		if !r.Success && h.OnError == Fail {
			errs = append(errs, fmt.Errorf("post-export hook %q failed: %w", h.Name, r.Error))
		}
	}
	return errors.Join(errs...)
}

// Results returns the results of all hooks run so far.
func (e *Executor) Results() []HookResult {
	return e.results
}

// Summary describes the runs, listing each failure with a stderr excerpt.
// It is empty when no hook ran.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	ok, failed := 0, 0
	for _, r := range e.results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hooks: %d succeeded, %d failed\n", ok, failed)
	for _, r := range e.results {
		if r.Success {
			continue
		}
		fmt.Fprintf(&sb, "  [%s] %s: %v\n", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, "    stderr: %s\n", truncate(strings.ReplaceAll(r.Stderr, "\n", " "), summaryStderrLimit))
		}
	}
	return sb.String()
}

func (e *Executor) run(h Hook, phase HookPhase) HookResult {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := shellCommand(ctx, h.Command)
	cmd.Env = append(os.Environ(), e.ctx.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	r := HookResult{
		Hook:     h,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", timeout)
		}
		r.Error = err
	}
	debug.Log("hook %s/%s: success=%v in %s", phase, h.Name, r.Success, r.Duration)
	e.results = append(e.results, r)
	return r
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// RunHooks loads the hooks configured for the directory source projectDir.
// It returns a nil executor when noHooks is set or nothing is configured.
func RunHooks(projectDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	config, err := LoadConfig(projectDir)
	if err != nil {
		return nil, err
	}
	for _, w := range config.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	if config.Empty() {
		return nil, nil
	}
	return NewExecutor(config, ctx), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

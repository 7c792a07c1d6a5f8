package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/ft/pkg/debug"
	"github.com/vanderheijden86/ft/pkg/loader"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnvVar forces polling mode when set to a true value.
const ForcePollEnvVar = "FT_FORCE_POLL"

// Common errors.
var (
	ErrPathRemoved    = errors.New("watched path was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the source changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithIgnore skips paths matching ig when watching a directory. Paths are
// matched relative to the watched root.
func WithIgnore(ig *loader.Ignore) WatcherOption {
	return func(w *Watcher) {
		w.ignore = ig
	}
}

// fingerprint summarizes the watched path for polling. For a directory it
// covers every non-ignored entry below it.
type fingerprint struct {
	exists bool
	mtime  time.Time
	size   int64
	count  int
}

// Watcher monitors a listing file or a directory tree for changes using
// fsnotify with polling fallback.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	forcePollEnv     bool
	fsType           FilesystemType
	ignore           *loader.Ignore

	isDir       bool
	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        fingerprint

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a new watcher for the given file or directory.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())

	// Reset per-start state.
	w.useFallback = false
	w.forcePollEnv = envBool(ForcePollEnvVar)
	w.fsType = detectFilesystemTypeFunc(w.path)
	if isRemoteFilesystem(w.fsType) {
		w.useFallback = true
	}

	forcePoll := w.forcePoll || w.forcePollEnv
	if forcePoll {
		w.useFallback = true
	}

	info, err := os.Stat(w.path)
	switch {
	case err == nil:
		w.isDir = info.IsDir()
	case os.IsPermission(err):
		return ErrPermission
	default:
		// The source might not exist yet.
		w.isDir = false
	}
	w.last = w.fingerprint()

	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err := w.addWatches(fsw); err != nil {
				debug.Log("watcher: fsnotify unavailable for %s: %v", w.path, err)
				fsw.Close()
				w.useFallback = true
			} else {
				w.fsWatcher = fsw
				go w.watchFsnotify(fsw)
			}
		} else {
			w.useFallback = true
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	debug.Log("watcher: started on %s (dir=%v polling=%v fs=%s)", w.path, w.isDir, w.useFallback, w.fsType)
	w.started = true
	return nil
}

// Stop stops watching. The Changed channel is left open so a receiver
// blocked on it does not observe a spurious change.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when the source changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched path.
func (w *Watcher) Path() string {
	return w.path
}

// FilesystemType returns the best-effort filesystem classification for the watched path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// ignored reports whether abs lies below the root and matches the ignore set.
func (w *Watcher) ignored(abs string) bool {
	if w.ignore == nil || !w.isDir {
		return false
	}
	rel, err := filepath.Rel(w.path, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return w.ignore.Match(filepath.ToSlash(rel))
}

// addWatches registers the parent directory of a file source (more reliable
// for atomic writes) or every non-ignored directory of a directory source.
func (w *Watcher) addWatches(fsw *fsnotify.Watcher) error {
	if !w.isDir {
		return fsw.Add(filepath.Dir(w.path))
	}
	return w.addTree(fsw, w.path)
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	targetFile := filepath.Base(w.path)
	events := fsw.Events
	errs := fsw.Errors

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			if !w.isDir {
				if filepath.Base(event.Name) != targetFile {
					continue
				}
				switch {
				case event.Op&fsnotify.Remove != 0:
					w.onError(ErrPathRemoved)
				case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
					w.debouncer.Trigger(w.notifyChange)
				}
				continue
			}

			if event.Name == w.path && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.onError(ErrPathRemoved)
				continue
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, event.Name); err != nil {
						debug.Log("watcher: cannot watch %s: %v", event.Name, err)
					}
				}
			}
			w.debouncer.Trigger(w.notifyChange)

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// watchPolling monitors using periodic stat checks.
func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			_, err := os.Stat(w.path)
			if err != nil {
				if os.IsNotExist(err) {
					// Only report if the path existed before
					w.mu.RLock()
					hadPath := w.last.exists
					w.mu.RUnlock()
					if hadPath {
						w.onError(ErrPathRemoved)
					}
				} else if os.IsPermission(err) {
					w.onError(ErrPermission)
				} else {
					w.onError(err)
				}
				continue
			}

			fp := w.fingerprint()
			w.mu.Lock()
			changed := fp != w.last
			w.last = fp
			w.mu.Unlock()

			if changed {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

func (w *Watcher) fingerprint() fingerprint {
	info, err := os.Stat(w.path)
	if err != nil {
		return fingerprint{}
	}
	fp := fingerprint{exists: true, mtime: info.ModTime(), size: info.Size(), count: 1}
	if !info.IsDir() {
		return fp
	}
	_ = filepath.WalkDir(w.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == w.path {
			return nil
		}
		if w.ignored(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fp.count++
		if info.ModTime().After(fp.mtime) {
			fp.mtime = info.ModTime()
		}
		if !d.IsDir() {
			fp.size += info.Size()
		}
		return nil
	})
	return fp
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Best effort: a callback may still slip through right after Stop.
	if !started {
		return
	}

	w.onChange()

	// Non-blocking send to change channel
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}

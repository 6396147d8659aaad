package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sonesuke/docgraph-sub000/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
	// settleDelay lets a burst of editor writes land before polling.
	settleDelay = 100 * time.Millisecond
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// ReloadFunc rebuilds the graph after the document tree changed.
type ReloadFunc func(ctx context.Context) error

// Option configures the Watcher.
type Option func(*Watcher)

// WithIgnore passes ignore patterns through to discovery.
func WithIgnore(patterns []string) Option {
	return func(w *Watcher) {
		w.opts = &discover.Options{Ignore: patterns}
	}
}

// WithoutNotify disables fsnotify; the watcher only polls.
func WithoutNotify() Option {
	return func(w *Watcher) {
		w.notify = false
	}
}

// Watcher polls a document root for Markdown changes and triggers a reload.
// Filesystem notifications, when available, cut the wait between polls short.
type Watcher struct {
	root     string
	reloadFn ReloadFunc
	opts     *discover.Options
	notify   bool

	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// New creates a Watcher for root. reloadFn is called when changes are detected.
func New(root string, reloadFn ReloadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		reloadFn: reloadFn,
		notify:   true,
		interval: baseInterval,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run blocks until ctx is cancelled. The first poll records a baseline
// without reloading.
func (w *Watcher) Run(ctx context.Context) {
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
		fsw    *fsnotify.Watcher
	)
	if w.notify {
		var err error
		fsw, err = fsnotify.NewWatcher()
		if err != nil {
			slog.Warn("watcher.notify_unavailable", "err", err)
		} else {
			defer fsw.Close()
			w.watchTree(fsw, w.root)
			events, errs = fsw.Events, fsw.Errors
		}
	}

	w.poll(ctx)
	timer := time.NewTimer(time.Until(w.nextPoll))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			w.poll(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !w.relevant(fsw, ev) {
				continue
			}
			slog.Debug("watcher.event", "path", ev.Name, "op", ev.Op.String())
			// Poll soon, but let a burst of writes settle first.
			w.nextPoll = time.Now().Add(settleDelay)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher.notify", "err", err)
			continue
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(time.Until(w.nextPoll))
	}
}

// watchTree adds dir and its non-ignored subdirectories to fsw.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != dir && discover.IGNORE_PATTERNS[d.Name()] {
			return fs.SkipDir
		}
		if addErr := fsw.Add(p); addErr != nil {
			slog.Warn("watcher.add_watch", "path", p, "err", addErr)
		}
		return nil
	})
}

// relevant reports whether ev may change the graph. New directories are
// added to the watch set as a side effect.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !discover.IGNORE_PATTERNS[filepath.Base(ev.Name)] {
				w.watchTree(fsw, ev.Name)
			}
			return true
		}
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return strings.EqualFold(filepath.Ext(ev.Name), ".md") || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// poll captures a snapshot of the document tree and compares it with the
// previous one. On a difference it calls reloadFn; a failed reload keeps the
// old snapshot so the next poll retries.
func (w *Watcher) poll(ctx context.Context) {
	if _, err := os.Stat(w.root); err != nil {
		slog.Warn("watcher.root_gone", "path", w.root)
		w.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(ctx, w.root, w.opts)
	if err != nil {
		slog.Warn("watcher.snapshot", "err", err)
		w.nextPoll = time.Now().Add(w.interval)
		return
	}

	interval := pollInterval(len(snap))

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "files", len(snap))
		w.snapshot = snap
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(w.snapshot, snap) {
		w.interval = interval
		w.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "files", len(snap))
	if err := w.reloadFn(ctx); err != nil {
		slog.Warn("watcher.reload", "err", err)
		w.nextPoll = time.Now().Add(interval)
		return
	}

	w.snapshot = snap
	w.interval = interval
	w.nextPoll = time.Now().Add(interval)
}

// captureSnapshot walks the document tree using discover.Discover and
// captures mtime+size for each file.
func captureSnapshot(ctx context.Context, root string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return snap, nil
}

// snapshotsEqual returns true if two snapshots have identical files with same mtime+size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}

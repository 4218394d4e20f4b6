// Package watch turns filesystem events under a root directory into
// debounced, de-duplicated batches of changed source files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/moby/patternmatcher"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("winter.watch")

// DefaultDebounce is the coalescing window when Options.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Directories never descended into.
var defaultIgnore = []string{".git", "node_modules", "bin", "obj"}

// Op is the kind of change seen for a path within one window.
type Op uint8

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	}
	return "unknown"
}

// Change is one path in a batch with the last operation seen for it.
type Change struct {
	Path string
	Op   Op
}

// Handler receives one sorted batch per debounce window. It runs on the
// watcher's goroutine; events arriving meanwhile are queued.
type Handler func(batch []Change)

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Extensions limits batches to these file extensions (case-insensitive,
	// with or without the dot). Empty accepts every file.
	Extensions []string
	// Ignore holds .dockerignore style patterns relative to the root.
	Ignore []string
}

// Watcher watches a directory tree. Create it with New, start it with Run
// and stop it by cancelling Run's context or calling Close.
type Watcher struct {
	root     string
	debounce time.Duration
	exts     map[string]bool
	ignore   *patternmatcher.PatternMatcher
	fsw      *fsnotify.Watcher

	done      chan struct{}
	closeOnce sync.Once
}

// New starts watching root and every directory below it that is not ignored.
func New(root string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	pm, err := patternmatcher.New(opts.Ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore patterns: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     abs,
		debounce: opts.Debounce,
		exts:     make(map[string]bool, len(opts.Extensions)),
		ignore:   pm,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, e := range opts.Extensions {
		if e = strings.ToLower(strings.TrimLeft(e, ".")); e != "" {
			w.exts[e] = true
		}
	}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// Close stops the watcher. A running Run flushes its pending batch and returns.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Warningf("watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string, dir bool) bool {
	if dir {
		for _, name := range defaultIgnore {
			if filepath.Base(path) == name {
				return true
			}
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	ok, err := w.ignore.MatchesOrParentMatches(rel)
	return err == nil && ok
}

func (w *Watcher) accepts(path string) bool {
	if w.ignored(path, false) {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(strings.TrimLeft(filepath.Ext(path), "."))]
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpWrite
	}
}

// Run delivers batches to h until ctx is cancelled or Close is called. The
// batch pending at that moment is delivered before Run returns.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	if h == nil {
		return errors.New("watch: nil handler")
	}
	pending := make(map[string]Op)
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		batch := make([]Change, 0, len(pending))
		for p, op := range pending {
			batch = append(batch, Change{Path: p, Op: op})
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		clear(pending)
		h(batch)
	}

	// drain takes the events fsnotify already delivered so stopping never
	// loses them.
	drain := func() {
		for {
			select {
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				w.handleEvent(ev, pending)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			drain()
			flush()
			_ = w.Close()
			return nil
		case <-w.done:
			drain()
			flush()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			w.handleEvent(ev, pending)
			if len(pending) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				drain()
				flush()
				return nil
			}
			log.Warningf("watch error: %v", err)
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event, pending map[string]Op) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	op := convertOp(ev.Op)
	if op == OpCreate {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.closed() && !w.ignored(ev.Name, true) {
				if err := w.addTree(ev.Name); err != nil {
					log.Warningf("watch %s: %v", ev.Name, err)
				}
			}
			return
		}
	}
	if !w.accepts(ev.Name) {
		return
	}
	// create then write in one window is still a create
	if prev, ok := pending[ev.Name]; ok && prev == OpCreate && op == OpWrite {
		return
	}
	log.Debugf("%s %s", op, ev.Name)
	pending[ev.Name] = op
}

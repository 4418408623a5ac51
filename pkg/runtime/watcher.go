package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/clauselab/regula/pkg/loader"
	"github.com/clauselab/regula/pkg/rulemodel"
)

// Watcher hot-reloads rule packs from a directory. On a change it reloads
// every pack through the Loader and swaps the runtime snapshot atomically,
// so evaluations in flight finish on the rules they started with.
type Watcher struct {
	runtime  *Runtime
	loader   *loader.Loader
	dir      string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher builds a watcher over a directory of .yaml/.yml pack files.
func NewWatcher(rt *Runtime, ld *loader.Loader, dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		runtime:  rt,
		loader:   ld,
		dir:      dir,
		debounce: 100 * time.Millisecond,
		logger:   logger,
	}
}

// Reload loads all packs currently in the directory into the runtime.
// Per-rule load failures are logged and skipped; a pack-level parse
// failure skips that pack and keeps the rest.
func (w *Watcher) Reload(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("runtime: read pack dir %s: %w", w.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isPackFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var rules []rulemodel.Rule
	for _, name := range names {
		pack, loadErrs, err := w.loader.LoadFile(filepath.Join(w.dir, name))
		if err != nil {
			w.logger.Error("pack skipped", "file", name, "error", err)
			continue
		}
		if len(loadErrs) > 0 {
			w.logger.Warn("pack loaded with rejected rules",
				"file", name, "pack_id", pack.PackID, "rejected", len(loadErrs))
		}
		rules = append(rules, pack.Rules...)
	}

	return w.runtime.Load(ctx, rules)
}

// Watch performs an initial Reload, then blocks reloading on filesystem
// changes until the context is cancelled. Event bursts are debounced.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.Reload(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("runtime: fsnotify: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("runtime: watch %s: %w", w.dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isPackFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			if err := w.Reload(ctx); err != nil {
				w.logger.Error("hot reload failed", "dir", w.dir, "error", err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func isPackFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselab/regula/pkg/loader"
)

const watcherPackA = `
pack_id: pack-a
version: 1.0.0
rules:
  - rule_id: a_rule
    applies_if:
      - kind: field_check
        field: jurisdiction
        op: eq
        value: EU
    decision_tree:
      outcome: permitted
    source:
      document_id: doc-a
`

const watcherPackB = `
pack_id: pack-b
version: 1.0.0
rules:
  - rule_id: b_rule
    decision_tree:
      outcome: requires_review
    source:
      document_id: doc-b
`

func writePack(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "a.yaml", watcherPackA)
	writePack(t, dir, "b.yml", watcherPackB)
	writePack(t, dir, "notes.txt", "not a pack")

	rt, _ := newTestRuntime(t)
	w := NewWatcher(rt, loader.New(nil), dir, nil)

	require.NoError(t, w.Reload(context.Background()))
	assert.Equal(t, 2, rt.RuleCount())
}

func TestWatcher_ReloadSkipsBrokenPack(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "a.yaml", watcherPackA)
	writePack(t, dir, "broken.yaml", "{ pack_id: ")

	rt, _ := newTestRuntime(t)
	w := NewWatcher(rt, loader.New(nil), dir, nil)

	require.NoError(t, w.Reload(context.Background()))
	assert.Equal(t, 1, rt.RuleCount(), "the healthy pack still loads")
}

func TestWatcher_ReloadMissingDir(t *testing.T) {
	rt, _ := newTestRuntime(t)
	w := NewWatcher(rt, loader.New(nil), filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, w.Reload(context.Background()))
}

func TestWatcher_WatchPicksUpNewPack(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "a.yaml", watcherPackA)

	rt, _ := newTestRuntime(t)
	w := NewWatcher(rt, loader.New(nil), dir, nil)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Wait for the initial reload before mutating the directory.
	require.Eventually(t, func() bool { return rt.RuleCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	writePack(t, dir, "b.yaml", watcherPackB)
	require.Eventually(t, func() bool { return rt.RuleCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

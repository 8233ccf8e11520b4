package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"ebb/internal/diag"
	"ebb/internal/diagfmt"
)

func TestAnalyzeDirResultsFollowSortedOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Written out of order on purpose; discovery must sort.
	bPath := writeSnapshot(t, dir, "b.bir.json", cleanDoc)
	cPath := writeSnapshot(t, filepath.Join(dir, "nested"), "c.bir.json", unusedDoc)
	aPath := writeSnapshot(t, dir, "a.bir.json", unusedDoc)

	fs, results, err := AnalyzeDirWithOptions(context.Background(), dir, AnalyzeOptions{NoCache: true}, 2)
	if err != nil {
		t.Fatalf("AnalyzeDirWithOptions error: %v", err)
	}
	if fs == nil {
		t.Fatal("expected fileset")
	}

	var paths []string
	for _, res := range results {
		paths = append(paths, res.Path)
	}
	if want := []string{aPath, bPath, cPath}; !slices.Equal(paths, want) {
		t.Fatalf("got order %v, want %v", paths, want)
	}

	for _, res := range results {
		if res.File != nil || res.Facts != nil {
			t.Fatalf("directory results must release trees, got %+v for %s", res, res.Path)
		}
		if fs.Get(res.FileID) == nil {
			t.Fatalf("fileset missing file ID %d for %s", res.FileID, res.Path)
		}
		want := 1
		if res.Path == bPath {
			want = 0
		}
		if res.Bag.Len() != want {
			t.Fatalf("got %d diagnostics for %s, want %d: %+v", res.Bag.Len(), res.Path, want, res.Bag.Items())
		}

		// Directory results feed the renderer in the CLI; it must never
		// panic on them.
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("pretty formatting panicked for %s: %v", res.Path, r)
				}
			}()
			var buf bytes.Buffer
			diagfmt.Pretty(&buf, res.Bag, fs, diagfmt.PrettyOpts{Context: 1, PathMode: diagfmt.PathModeRelative})
		}()
	}
}

func TestAnalyzeDirRecordsLoadFailure(t *testing.T) {
	dir := t.TempDir()
	aPath := writeSnapshot(t, dir, "a.bir.json", unusedDoc)
	brokenPath := filepath.Join(dir, "broken.bir.json")
	if err := os.Symlink(filepath.Join(dir, "no-such-target"), brokenPath); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	fs, results, err := AnalyzeDirWithOptions(context.Background(), dir, AnalyzeOptions{NoCache: true}, 1)
	if err != nil {
		t.Fatalf("AnalyzeDirWithOptions error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	good, bad := results[0], results[1]
	if good.Path != aPath || bad.Path != brokenPath {
		t.Fatalf("got paths %q, %q", good.Path, bad.Path)
	}
	if good.Bag.Len() != 1 || good.Bag.Items()[0].Code != diag.LivUnusedVariable {
		t.Fatalf("got %+v for the readable snapshot", good.Bag.Items())
	}

	if bad.Bag.Len() != 1 {
		t.Fatalf("got %+v for the unreadable snapshot", bad.Bag.Items())
	}
	d := bad.Bag.Items()[0]
	if d.Code != diag.IOLoadFileError || d.Severity != diag.SevError {
		t.Fatalf("got %s %s, want error %s", d.Severity.Label(), d.Code.ID(), diag.IOLoadFileError.ID())
	}
	if !strings.HasPrefix(d.Message, "failed to load file: ") {
		t.Fatalf("got message %q", d.Message)
	}
	// The failure is anchored at a placeholder under the snapshot path so
	// it renders with a location.
	f := fs.Get(bad.FileID)
	if f == nil || f.Path != filepath.ToSlash(brokenPath) {
		t.Fatalf("placeholder file = %+v, want path %q", f, brokenPath)
	}
}

// eventCollector records progress events; the solver fan-out delivers them
// from several goroutines.
type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) OnEvent(evt Event) {
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
}

func (c *eventCollector) sequence(path string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, evt := range c.events {
		if evt.File == path {
			out = append(out, string(evt.Stage)+"/"+string(evt.Status))
		}
	}
	return out
}

func TestAnalyzeDirEmitsProgressEvents(t *testing.T) {
	dir := t.TempDir()
	goodPath := writeSnapshot(t, dir, "good.bir.json", cleanDoc)
	oldPath := writeSnapshot(t, dir, "old.bir.json", `{"schema": 9, "path": "old.sg", "source": "", "bodies": []}`)
	brokenPath := filepath.Join(dir, "zz.bir.json")
	if err := os.Symlink(filepath.Join(dir, "no-such-target"), brokenPath); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	sink := &eventCollector{}
	_, results, err := AnalyzeDirWithOptions(context.Background(), dir, AnalyzeOptions{NoCache: true, Progress: sink}, 2)
	if err != nil {
		t.Fatalf("AnalyzeDirWithOptions error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if got, want := sink.sequence(goodPath), []string{
		"load/queued", "load/working", "load/done", "analyze/working", "analyze/done",
	}; !slices.Equal(got, want) {
		t.Fatalf("good snapshot events = %v, want %v", got, want)
	}
	// A document rejected at decode never reaches a worker but still
	// completes the analyze stage for progress consumers.
	if got, want := sink.sequence(oldPath), []string{
		"load/queued", "load/working", "load/done", "analyze/done",
	}; !slices.Equal(got, want) {
		t.Fatalf("rejected snapshot events = %v, want %v", got, want)
	}
	// A load failure is terminal: no later event may override it.
	if got, want := sink.sequence(brokenPath), []string{
		"load/queued", "load/working", "load/error",
	}; !slices.Equal(got, want) {
		t.Fatalf("unreadable snapshot events = %v, want %v", got, want)
	}

	for _, evt := range sink.events {
		if evt.Status == StatusError && evt.Err == nil {
			t.Fatalf("error event without cause: %+v", evt)
		}
	}
}

func TestAnalyzeDirEmptyDir(t *testing.T) {
	fs, results, err := AnalyzeDirWithOptions(context.Background(), t.TempDir(), AnalyzeOptions{NoCache: true}, 0)
	if err != nil {
		t.Fatalf("AnalyzeDirWithOptions error: %v", err)
	}
	if fs == nil {
		t.Fatal("expected fileset")
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want none", len(results))
	}
}

func TestAnalyzeDirEmitLiveFollowsPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "a.bir.json", unusedDoc) // body `demo`
	writeSnapshot(t, dir, "b.bir.json", cleanDoc)  // body `ok`

	var dump bytes.Buffer
	_, _, err := AnalyzeDirWithOptions(context.Background(), dir, AnalyzeOptions{NoCache: true, EmitLive: &dump}, 4)
	if err != nil {
		t.Fatalf("AnalyzeDirWithOptions error: %v", err)
	}

	out := dump.String()
	demoAt := strings.Index(out, "body `demo`")
	okAt := strings.Index(out, "body `ok`")
	if demoAt < 0 || okAt < 0 {
		t.Fatalf("dump missing body tables:\n%s", out)
	}
	if demoAt > okAt {
		t.Fatalf("dump order does not follow path order:\n%s", out)
	}
}

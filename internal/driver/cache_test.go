package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ebb/internal/diag"
	"ebb/internal/diagfmt"
	"ebb/internal/project"
)

func TestAnalyzeCacheReplaysRecordedDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	path := writeSnapshot(t, dir, "demo.bir.json", unusedDoc)

	first, err := AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheHit {
		t.Fatal("first run must miss")
	}
	if info, statErr := os.Stat(filepath.Join(dir, CacheDirName)); statErr != nil || !info.IsDir() {
		t.Fatalf("cache directory not created under the manifest root: %v", statErr)
	}

	second, err := AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second run must replay from the cache")
	}
	if second.File != nil || second.Facts != nil {
		t.Fatal("a replay must not rebuild the tree or re-solve")
	}

	// The replay registers the recorded source, so the rendered output,
	// context lines included, matches the fresh run byte for byte.
	var fresh, replayed bytes.Buffer
	diagfmt.Pretty(&fresh, first.Bag, first.FileSet, diagfmt.PrettyOpts{Context: 1, PathMode: diagfmt.PathModeBasename})
	diagfmt.Pretty(&replayed, second.Bag, second.FileSet, diagfmt.PrettyOpts{Context: 1, PathMode: diagfmt.PathModeBasename})
	if fresh.String() != replayed.String() {
		t.Fatalf("replayed output differs:\n--- fresh\n%s--- replayed\n%s", fresh.String(), replayed.String())
	}

	d := second.Bag.Items()[0]
	if d.Code != diag.LivUnusedVariable || len(d.Fixes) != 1 {
		t.Fatalf("replayed diagnostic lost its shape: %+v", d)
	}
}

func TestAnalyzeCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	path := writeSnapshot(t, dir, "demo.bir.json", unusedDoc)

	if _, err := AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	entries, err := filepath.Glob(filepath.Join(dir, CacheDirName, "results", "*.mp"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("got entries %v (err %v), want one", entries, err)
	}
	if err := os.WriteFile(entries[0], []byte("garbage"), 0o600); err != nil {
		t.Fatalf("corrupt entry: %v", err)
	}

	res, err := AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{})
	if err != nil {
		t.Fatalf("run over corrupt entry: %v", err)
	}
	if res.CacheHit {
		t.Fatal("a corrupt entry must be a miss")
	}
	if res.Bag.Len() != 1 || res.Bag.Items()[0].Code != diag.LivUnusedVariable {
		t.Fatalf("re-analysis produced %+v", res.Bag.Items())
	}

	// The miss rewrote the entry.
	res, err = AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{})
	if err != nil {
		t.Fatalf("run after rewrite: %v", err)
	}
	if !res.CacheHit {
		t.Fatal("the rewritten entry must hit")
	}
}

func TestAnalyzeEmitLiveSkipsCacheProbe(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir)
	path := writeSnapshot(t, dir, "demo.bir.json", unusedDoc)

	if _, err := AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{}); err != nil {
		t.Fatalf("priming run: %v", err)
	}

	var dump bytes.Buffer
	res, err := AnalyzeWithOptions(context.Background(), path, AnalyzeOptions{EmitLive: &dump})
	if err != nil {
		t.Fatalf("dump run: %v", err)
	}
	if res.CacheHit {
		t.Fatal("a dump needs solved facts and must not replay")
	}
	if res.Facts == nil {
		t.Fatal("dump run lost its facts")
	}
	if !strings.Contains(dump.String(), "body `demo`") {
		t.Fatalf("dump missing the body table:\n%s", dump.String())
	}
}

func TestResultCacheDropAll(t *testing.T) {
	c, err := OpenResultCache(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	key := cacheKey([]byte("snapshot bytes"), "demo.bir.json", project.DefaultConfig())
	if err := c.Put(key, &cachePayload{Schema: cacheSchemaVersion, SourcePath: "demo.sg"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out cachePayload
	if hit, getErr := c.Get(key, &out); getErr != nil || !hit {
		t.Fatalf("get = %v, %v, want a hit", hit, getErr)
	}
	if out.SourcePath != "demo.sg" {
		t.Fatalf("got payload %+v", out)
	}

	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if hit, getErr := c.Get(key, &out); getErr != nil || hit {
		t.Fatalf("get after drop = %v, %v, want a miss", hit, getErr)
	}
	// Dropping an already empty cache is fine, and the next write
	// recreates the directory.
	if err := c.DropAll(); err != nil {
		t.Fatalf("second drop: %v", err)
	}
	if err := c.Put(key, &cachePayload{Schema: cacheSchemaVersion}); err != nil {
		t.Fatalf("put after drop: %v", err)
	}
	if hit, getErr := c.Get(key, &out); getErr != nil || !hit {
		t.Fatalf("get after rewrite = %v, %v, want a hit", hit, getErr)
	}
}

func TestCacheKeyCoversContentLocationAndConfig(t *testing.T) {
	cfg := project.DefaultConfig()
	base := cacheKey([]byte("data"), "/proj/a.bir.json", cfg)

	if got := cacheKey([]byte("data"), "/proj/a.bir.json", cfg); got != base {
		t.Fatal("key must be deterministic")
	}
	if got := cacheKey([]byte("changed"), "/proj/a.bir.json", cfg); got == base {
		t.Fatal("key must cover the snapshot bytes")
	}
	if got := cacheKey([]byte("data"), "/proj/b.bir.json", cfg); got == base {
		t.Fatal("key must cover the snapshot location")
	}
	strict := project.DefaultConfig()
	strict.Warnings.AllowPrefix = "ignored_"
	if got := cacheKey([]byte("data"), "/proj/a.bir.json", strict); got == base {
		t.Fatal("key must cover the effective config")
	}
}

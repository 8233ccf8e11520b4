package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB — ограничение для тестового корпуса
)

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addHandwrittenSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "birfile", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.bir.json документы
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".bir.json") {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		return
	}
}

// addHandwrittenSeeds covers the document states the decoder distinguishes:
// not JSON, JSON without bodies, a wrong schema, a rejected node kind, and a
// minimal clean body.
func addHandwrittenSeeds(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"schema": 2, "path": "stale.sg", "bodies": []}`))
	f.Add([]byte(`{"schema": 1, "path": "bad.sg", "bodies": [{"name": "f", "kind": "fn", "span": [0, 2], "root": 1, "exprs": [{"kind": "spawn", "span": [0, 1]}]}]}`))
	f.Add([]byte(`{"schema": 1, "path": "ok.sg", "bodies": [{"name": "f", "kind": "fn", "span": [0, 2], "root": 1, "exprs": [{"kind": "lit", "text": "0", "span": [0, 1]}]}]}`))
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

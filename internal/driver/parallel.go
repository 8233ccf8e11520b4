package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ebb/internal/source"
	"ebb/internal/trace"
)

// SnapshotSuffix is the file extension directory discovery looks for.
const SnapshotSuffix = ".bir.json"

// listSnapshotFiles returns the sorted list of snapshot files under dir.
func listSnapshotFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, SnapshotSuffix) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// AnalyzeDir analyzes every snapshot under dir with default options.
func AnalyzeDir(ctx context.Context, dir string, maxDiagnostics, jobs int) (*source.FileSet, []AnalyzeResult, error) {
	return AnalyzeDirWithOptions(ctx, dir, AnalyzeOptions{MaxDiagnostics: maxDiagnostics}, jobs)
}

// AnalyzeDirWithOptions analyzes every snapshot under dir. Loading and
// decoding run sequentially in sorted path order so file registration is
// deterministic; the solver then fans out across snapshots, which share no
// mutable state. Results come back in the same sorted order with one entry
// per discovered snapshot; an unreadable snapshot becomes an error
// diagnostic in its entry rather than failing the run. Directory results
// release the decoded trees and keep what rendering and fixing need.
func AnalyzeDirWithOptions(ctx context.Context, dir string, opts AnalyzeOptions, jobs int) (*source.FileSet, []AnalyzeResult, error) {
	files, err := listSnapshotFiles(dir)
	if err != nil {
		return nil, nil, err
	}

	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	cache, err := openCacheFor(dir, opts)
	if err != nil {
		return nil, nil, err
	}

	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "analyze-dir:"+dir, 0)
	sink := opts.Progress

	for _, path := range files {
		emit(sink, path, StageLoad, StatusQueued, nil, 0)
	}

	runs := make([]*snapshotRun, len(files))
	pending := 0
	for i, path := range files {
		start := time.Now()
		emit(sink, path, StageLoad, StatusWorking, nil, 0)
		st := newSnapshotRun(path, opts)
		runs[i] = st
		if loadErr := st.load(ctx, fileSet, opts, cache, root.ID()); loadErr != nil {
			st.failLoad(fileSet, loadErr)
			emit(sink, path, StageLoad, StatusError, loadErr, time.Since(start))
			continue
		}
		if st.pending {
			pending++
		}
		emit(sink, path, StageLoad, StatusDone, nil, time.Since(start))
	}

	if pending > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, pending))

		for _, st := range runs {
			if !st.pending {
				continue
			}
			g.Go(func(st *snapshotRun) func() error {
				return func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}

					start := time.Now()
					emit(sink, st.path, StageAnalyze, StatusWorking, nil, 0)
					var dump io.Writer
					if opts.EmitLive != nil {
						st.dump = &bytes.Buffer{}
						dump = st.dump
					}
					st.analyze(gctx, fileSet, opts, dump, cache, root.ID())
					emit(sink, st.path, StageAnalyze, StatusDone, nil, time.Since(start))
					return nil
				}
			}(st))
		}

		if err := g.Wait(); err != nil {
			root.End("canceled")
			return fileSet, nil, err
		}
	}
	for _, st := range runs {
		// Snapshots that never reached the solver still complete the
		// stage for progress consumers. Load failures already reported
		// a terminal error.
		if st.facts != nil || st.loadFailed {
			continue
		}
		emit(sink, st.path, StageAnalyze, StatusDone, nil, 0)
	}

	results := make([]AnalyzeResult, len(files))
	for i, st := range runs {
		res := st.finish(fileSet, opts)
		if st.dump != nil && opts.EmitLive != nil {
			_, _ = io.Copy(opts.EmitLive, st.dump)
		}
		res.File = nil
		res.Facts = nil
		results[i] = *res
	}

	root.End(fmt.Sprintf("files=%d", len(files)))
	return fileSet, results, nil
}

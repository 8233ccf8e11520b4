package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"ebb/internal/bir"
	"ebb/internal/birfile"
	"ebb/internal/diag"
	"ebb/internal/liveness"
	"ebb/internal/observ"
	"ebb/internal/project"
	"ebb/internal/source"
	"ebb/internal/trace"
)

// AnalyzeOptions configures a driver run.
type AnalyzeOptions struct {
	// MaxDiagnostics caps the bag; zero or negative falls back to the
	// effective config's output.max_diagnostics.
	MaxDiagnostics   int
	IgnoreWarnings   bool
	WarningsAsErrors bool
	EnableTimings    bool
	// EmitLive receives the per-body live-node tables. A dump needs solved
	// facts, so setting it skips cache lookups; results are still stored.
	EmitLive io.Writer
	// NoCache disables the result cache entirely for this run.
	NoCache bool
	// Config is the effective project configuration; nil means defaults.
	// Command-line flags are merged in by the caller.
	Config *project.Config
	// Progress receives per-snapshot events during directory runs.
	Progress ProgressSink
}

// AnalyzeResult carries everything one snapshot produced.
type AnalyzeResult struct {
	FileSet *source.FileSet
	// File is the decoded body tree. It is nil when loading failed, on a
	// cache hit, and in directory runs, which release the trees once the
	// bags are final.
	File *bir.File
	// FileID identifies the embedded source inside FileSet. When the
	// snapshot could not be read it points at a placeholder registered
	// under the snapshot path, so the failure still renders with a
	// location.
	FileID source.FileID
	// Path is the snapshot path as given to the driver.
	Path string
	Bag  *diag.Bag
	// Facts holds the solved liveness tables; nil under the same rules as
	// File.
	Facts *liveness.Result
	// Timing is the phase report when timings were enabled.
	Timing *observ.Report
	// CacheHit reports that the diagnostics were replayed from the result
	// cache instead of recomputed.
	CacheHit bool
}

// AnalyzeFile runs the full pipeline on one snapshot with default options.
func AnalyzeFile(ctx context.Context, path string, maxDiagnostics int) (*AnalyzeResult, error) {
	return AnalyzeWithOptions(ctx, path, AnalyzeOptions{MaxDiagnostics: maxDiagnostics})
}

// AnalyzeWithOptions loads one snapshot, decodes and validates the document,
// runs the liveness pass, and returns the sorted findings. An unreadable or
// syntactically broken snapshot is an error; every structural or analysis
// finding lands in the result bag instead.
func AnalyzeWithOptions(ctx context.Context, path string, opts AnalyzeOptions) (*AnalyzeResult, error) {
	cache, err := openCacheFor(path, opts)
	if err != nil {
		return nil, err
	}

	fs := source.NewFileSet()
	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeDriver, "analyze:"+path, 0)

	st := newSnapshotRun(path, opts)
	if err := st.load(ctx, fs, opts, cache, root.ID()); err != nil {
		root.End("load failed")
		return nil, err
	}
	st.analyze(ctx, fs, opts, opts.EmitLive, cache, root.ID())
	res := st.finish(fs, opts)
	root.End(fmt.Sprintf("diags=%d", res.Bag.Len()))
	return res, nil
}

// effectiveConfig resolves nil to the defaults.
func effectiveConfig(opts AnalyzeOptions) *project.Config {
	if opts.Config != nil {
		return opts.Config
	}
	return project.DefaultConfig()
}

// snapshotRun tracks one snapshot through the pipeline. Directory runs
// drive the phases separately: load and decode happen sequentially so file
// registration stays deterministic, the solver fans out afterwards.
type snapshotRun struct {
	path     string
	timer    *observ.Timer
	bag      *diag.Bag
	file     *bir.File
	fileID   source.FileID
	facts    *liveness.Result
	key      project.Digest
	keyed    bool
	cacheHit bool
	// loadFailed marks a snapshot whose bytes never arrived; its bag
	// holds the I/O error anchored at a placeholder file.
	loadFailed bool
	// pending is set once the snapshot decoded cleanly and still awaits
	// the liveness pass.
	pending bool
	// dump buffers the live-node tables during parallel runs so the
	// shared writer sees them in path order.
	dump *bytes.Buffer
}

func newSnapshotRun(path string, opts AnalyzeOptions) *snapshotRun {
	cfg := effectiveConfig(opts)
	max := opts.MaxDiagnostics
	if max <= 0 {
		max = cfg.Output.MaxDiagnostics
	}
	st := &snapshotRun{
		path: path,
		bag:  diag.NewBag(max),
	}
	if opts.EnableTimings {
		st.timer = observ.NewTimer()
	}
	return st
}

func (st *snapshotRun) beginPhase(name string) int {
	if st.timer == nil {
		return -1
	}
	return st.timer.Begin(name)
}

func (st *snapshotRun) endPhase(idx int, note string) {
	if st.timer == nil || idx < 0 {
		return
	}
	st.timer.End(idx, note)
}

// load reads the snapshot, probes the cache, and decodes on a miss. It
// returns an error only when the bytes cannot be read or parsed as JSON;
// a well-formed document with structural problems produces error
// diagnostics and an empty analysis instead.
func (st *snapshotRun) load(ctx context.Context, fs *source.FileSet, opts AnalyzeOptions, cache *ResultCache, parent uint64) error {
	tracer := trace.FromContext(ctx)

	loadIdx := st.beginPhase("load_file")
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(st.path)
	if err != nil {
		st.endPhase(loadIdx, "error")
		return err
	}
	st.endPhase(loadIdx, "")

	if cache != nil {
		st.key = cacheKey(data, st.path, effectiveConfig(opts))
		st.keyed = true
		if opts.EmitLive == nil {
			lookIdx := st.beginPhase("cache_lookup")
			var payload cachePayload
			if hit, getErr := cache.Get(st.key, &payload); getErr == nil && hit {
				st.endPhase(lookIdx, "hit")
				st.replay(fs, &payload)
				return nil
			}
			st.endPhase(lookIdx, "miss")
		}
	}

	decIdx := st.beginPhase("decode")
	sp := trace.Begin(tracer, trace.ScopePass, "decode:"+st.path, parent)
	file, decBag, err := birfile.Decode(fs, st.path, data)
	if err != nil {
		sp.End("malformed")
		st.endPhase(decIdx, "error")
		return err
	}
	for _, d := range decBag.Items() {
		st.bag.Add(d)
	}
	if file == nil {
		// Rejected before the tree was built (unsupported schema). The
		// findings carry the anchor of the registered source.
		if items := decBag.Items(); len(items) > 0 {
			st.fileID = items[0].Primary.File
		}
		st.endPhase(decIdx, "rejected")
		sp.End("rejected")
		return nil
	}
	st.file = file
	st.fileID = file.FileID
	note := ""
	if st.timer != nil {
		note = fmt.Sprintf("bodies=%d diags=%d", len(file.Bodies), st.bag.Len())
	}
	st.endPhase(decIdx, note)
	sp.End(fmt.Sprintf("bodies=%d", len(file.Bodies)))

	st.pending = !st.bag.HasErrors()
	return nil
}

// failLoad records an unreadable snapshot as a diagnostic. The placeholder
// file anchors the report at the snapshot path.
func (st *snapshotRun) failLoad(fs *source.FileSet, loadErr error) {
	st.fileID = fs.AddVirtual(st.path, nil)
	st.bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.IOLoadFileError,
		Message:  "failed to load file: " + loadErr.Error(),
		Primary:  source.Span{File: st.fileID},
	})
	st.loadFailed = true
	st.pending = false
}

// replay registers the cached source and rebinds the recorded diagnostics
// to it.
func (st *snapshotRun) replay(fs *source.FileSet, payload *cachePayload) {
	st.fileID = fs.AddVirtual(payload.SourcePath, payload.Source)
	for i := range payload.Diags {
		st.bag.Add(payload.Diags[i].diagnostic(st.fileID))
	}
	st.cacheHit = true
	st.pending = false
}

// analyze runs the liveness pass and stores the sorted result. A no-op for
// snapshots that failed to load, decoded with errors, or replayed from the
// cache.
func (st *snapshotRun) analyze(ctx context.Context, fs *source.FileSet, opts AnalyzeOptions, dump io.Writer, cache *ResultCache, parent uint64) {
	if !st.pending {
		return
	}
	st.pending = false

	tracer := trace.FromContext(ctx)
	cfg := effectiveConfig(opts)
	warnings := liveness.Warnings{
		Unused:      cfg.Warnings.Unused,
		DeadStore:   cfg.Warnings.DeadStore,
		AllowPrefix: cfg.Warnings.AllowPrefix,
	}

	livIdx := st.beginPhase("liveness")
	sp := trace.Begin(tracer, trace.ScopePass, "liveness:"+st.path, parent)
	st.facts = liveness.Check(st.file, fs, liveness.Options{
		Reporter: diag.BagReporter{Bag: st.bag},
		Tracer:   tracer,
		Dump:     dump,
		Warnings: &warnings,
	})
	note := ""
	if st.timer != nil {
		note = fmt.Sprintf("bodies=%d diags=%d", len(st.facts.Bodies()), st.bag.Len())
	}
	st.endPhase(livIdx, note)
	sp.End(fmt.Sprintf("bodies=%d", len(st.facts.Bodies())))

	st.bag.Sort()
	if cache != nil && st.keyed {
		if payload := encodeCachePayload(fs, st.fileID, st.bag); payload != nil {
			// Best effort: a failed write only costs the next run a miss.
			_ = cache.Put(st.key, payload)
		}
	}
}

// finish applies the display policies and assembles the result.
func (st *snapshotRun) finish(fs *source.FileSet, opts AnalyzeOptions) *AnalyzeResult {
	if opts.IgnoreWarnings {
		st.bag.Filter(func(d diag.Diagnostic) bool {
			return d.Severity != diag.SevWarning && d.Severity != diag.SevInfo
		})
	}
	if opts.WarningsAsErrors {
		st.bag.Transform(func(d diag.Diagnostic) diag.Diagnostic {
			if d.Severity == diag.SevWarning {
				d.Severity = diag.SevError
			}
			return d
		})
		st.bag.Sort()
	}

	res := &AnalyzeResult{
		FileSet:  fs,
		File:     st.file,
		FileID:   st.fileID,
		Path:     st.path,
		Bag:      st.bag,
		Facts:    st.facts,
		CacheHit: st.cacheHit,
	}
	if st.timer != nil {
		report := st.timer.Report()
		res.Timing = &report
		displayPath := st.path
		if f := fs.Get(st.fileID); f != nil {
			displayPath = f.Path
		}
		appendTimingDiagnostic(st.bag, source.Span{File: st.fileID}, timingPayload{
			Kind:    "file",
			Path:    displayPath,
			TotalMS: report.TotalMS,
			Phases:  report.Phases,
		})
	}
	return res
}

package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ebb/internal/diag"
	"ebb/internal/project"
	"ebb/internal/source"
)

// cacheSchemaVersion invalidates every stored entry when the payload format
// changes.
const cacheSchemaVersion uint16 = 1

// CacheDirName is the directory the result cache lives in, created under
// the project root (the directory holding ebb.toml) or, without a manifest,
// next to the analyzed target.
const CacheDirName = ".ebb-cache"

// ResultCache stores per-snapshot analysis results on disk, keyed by the
// combined digest of the snapshot bytes, its location, and the effective
// config. A hit replays the recorded diagnostics without re-analysis.
// Thread-safe for concurrent access.
type ResultCache struct {
	mu  sync.RWMutex
	dir string
}

// cachePayload is the stored form of one snapshot's analysis. The embedded
// source travels along so a replay can register it and rebind the recorded
// spans; every span in a snapshot's bag points at that one file.
type cachePayload struct {
	Schema     uint16
	SourcePath string
	Source     []byte
	Diags      []cachedDiag
}

type cachedDiag struct {
	Severity uint8
	Code     uint16
	Message  string
	Start    uint32
	End      uint32
	Notes    []cachedNote
	Fixes    []cachedFix
}

type cachedNote struct {
	// Anchored distinguishes a note at offset zero from a note with no
	// location at all; primaries are always anchored.
	Anchored bool
	Start    uint32
	End      uint32
	Msg      string
}

type cachedFix struct {
	ID            string
	Title         string
	Applicability uint8
	Preferred     bool
	Edits         []cachedEdit
}

type cachedEdit struct {
	Start   uint32
	End     uint32
	NewText string
	OldText string
}

// OpenResultCache initializes the cache directory under root.
func OpenResultCache(root string) (*ResultCache, error) {
	dir := filepath.Join(root, CacheDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ResultCache{dir: dir}, nil
}

// CacheFor opens the result cache that analysis runs on target would use.
func CacheFor(target string) (*ResultCache, error) {
	return OpenResultCache(cacheRoot(target))
}

// Dir returns the directory the cache stores its entries under.
func (c *ResultCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *ResultCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "results", hexKey+".mp")
}

// Put serializes and writes a payload. The write goes through a temp file
// and an atomic rename so concurrent readers never see a partial entry.
func (c *ResultCache) Put(key project.Digest, payload *cachePayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing, corrupt, or version-skewed entry is a
// miss, not an error; the next Put rewrites it.
func (c *ResultCache) Get(key project.Digest, out *cachePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, nil
	}
	if out.Schema != cacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll removes every stored entry, useful after format changes.
func (c *ResultCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return os.RemoveAll(old)
}

// cacheKey derives the lookup key for one snapshot. The snapshot's own
// location participates because the embedded source path resolves against
// it; a moved snapshot must miss instead of replaying stale paths.
func cacheKey(data []byte, path string, cfg *project.Config) project.Digest {
	loc := path
	if abs, err := filepath.Abs(path); err == nil {
		loc = abs
	}
	return project.Combine(
		project.Digest(sha256.Sum256(data)),
		project.Digest(sha256.Sum256([]byte(loc))),
		cfg.Digest(),
	)
}

// cacheRoot picks the directory the cache lives under for a given target:
// the manifest's directory when one is found, the target's own directory
// otherwise.
func cacheRoot(target string) string {
	dir := target
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		dir = filepath.Dir(target)
	}
	if manifest, ok, err := project.FindEbbToml(dir); err == nil && ok {
		return filepath.Dir(manifest)
	}
	return dir
}

// openCacheFor returns the cache serving target, or nil when caching is
// disabled for this run.
func openCacheFor(target string, opts AnalyzeOptions) (*ResultCache, error) {
	if opts.NoCache {
		return nil, nil
	}
	return OpenResultCache(cacheRoot(target))
}

// encodeCachePayload captures the embedded source and the sorted bag.
func encodeCachePayload(fs *source.FileSet, fileID source.FileID, bag *diag.Bag) *cachePayload {
	f := fs.Get(fileID)
	if f == nil {
		return nil
	}
	p := &cachePayload{
		Schema:     cacheSchemaVersion,
		SourcePath: f.Path,
		Source:     f.Content,
	}
	for _, d := range bag.Items() {
		p.Diags = append(p.Diags, encodeCachedDiag(d))
	}
	return p
}

func encodeCachedDiag(d diag.Diagnostic) cachedDiag {
	cd := cachedDiag{
		Severity: uint8(d.Severity),
		Code:     uint16(d.Code),
		Message:  d.Message,
		Start:    d.Primary.Start,
		End:      d.Primary.End,
	}
	for _, n := range d.Notes {
		cd.Notes = append(cd.Notes, cachedNote{
			Anchored: n.Span != (source.Span{}),
			Start:    n.Span.Start,
			End:      n.Span.End,
			Msg:      n.Msg,
		})
	}
	for _, fx := range d.Fixes {
		cf := cachedFix{
			ID:            fx.ID,
			Title:         fx.Title,
			Applicability: uint8(fx.Applicability),
			Preferred:     fx.IsPreferred,
		}
		for _, e := range fx.Edits {
			cf.Edits = append(cf.Edits, cachedEdit{
				Start:   e.Span.Start,
				End:     e.Span.End,
				NewText: e.NewText,
				OldText: e.OldText,
			})
		}
		cd.Fixes = append(cd.Fixes, cf)
	}
	return cd
}

// diagnostic rebinds a recorded entry to the freshly registered file.
func (cd *cachedDiag) diagnostic(fileID source.FileID) diag.Diagnostic {
	d := diag.Diagnostic{
		Severity: diag.Severity(cd.Severity),
		Code:     diag.Code(cd.Code),
		Message:  cd.Message,
		Primary:  source.Span{File: fileID, Start: cd.Start, End: cd.End},
	}
	for _, n := range cd.Notes {
		note := diag.Note{Msg: n.Msg}
		if n.Anchored {
			note.Span = source.Span{File: fileID, Start: n.Start, End: n.End}
		}
		d.Notes = append(d.Notes, note)
	}
	for _, cf := range cd.Fixes {
		fx := diag.Fix{
			ID:            cf.ID,
			Title:         cf.Title,
			Applicability: diag.FixApplicability(cf.Applicability),
			IsPreferred:   cf.Preferred,
		}
		for _, e := range cf.Edits {
			fx.Edits = append(fx.Edits, diag.TextEdit{
				Span:    source.Span{File: fileID, Start: e.Start, End: e.End},
				NewText: e.NewText,
				OldText: e.OldText,
			})
		}
		d.Fixes = append(d.Fixes, fx)
	}
	return d
}

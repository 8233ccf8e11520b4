package source

type (
	// FileID identifies a file within a FileSet.
	FileID uint32
	// FileFlags records how the file entered the set and what was
	// normalized on the way in.
	FileFlags uint8
)

const (
	// FileVirtual marks content registered from memory rather than read
	// from disk (embedded snapshot source, tests, stdin).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File is one entry of a FileSet: content plus derived lookup data.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offsets of '\n', ascending
	Hash    [32]byte // sha256 of Content
	Flags   FileFlags
}

// LineCol is a 1-based human-readable position.
type LineCol struct {
	Line uint32
	Col  uint32
}

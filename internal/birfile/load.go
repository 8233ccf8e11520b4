package birfile

import (
	"os"

	"ebb/internal/bir"
	"ebb/internal/diag"
	"ebb/internal/source"
)

// Load reads a snapshot from disk and decodes it. Relative source paths
// inside the document resolve against the snapshot's directory.
func Load(fs *source.FileSet, path string) (*bir.File, *diag.Bag, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Decode(fs, path, data)
}

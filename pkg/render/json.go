package render

import (
	"io"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/goccy/go-json"

	"github.com/voluzi/procscope/pkg/metrics"
)

const (
	JSONFile = "result.json"

	ErrNoSnapshots = errors.Sentinel("no snapshots to render")
)

// WriteJSON encodes snapshots as a JSON array mirroring the data model.
func WriteJSON(w io.Writer, snapshots []metrics.Snapshot) error {
	if snapshots == nil {
		snapshots = []metrics.Snapshot{}
	}
	return json.NewEncoder(w).Encode(snapshots)
}

// ExportJSON writes snapshots to result.json inside dir and returns the file
// path.
func ExportJSON(dir string, snapshots []metrics.Snapshot) (string, error) {
	path := filepath.Join(dir, JSONFile)
	if err := writeFile(path, func(w io.Writer) error {
		return WriteJSON(w, snapshots)
	}); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.WrapIfWithDetails(err, "creating output file", "path", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return errors.WrapIfWithDetails(err, "writing output file", "path", path)
	}
	return f.Close()
}

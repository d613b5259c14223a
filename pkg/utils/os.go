package utils

import (
	"os"

	"emperror.dev/errors"
)

// FilesSize returns the combined size of the given files. Files that no
// longer exist are skipped.
func FilesSize(paths ...string) (int64, error) {
	var size int64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return size, err
		}
		if !info.IsDir() {
			size += info.Size()
		}
	}
	return size, nil
}

// EnsureDir creates dir and its parents when missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapIfWithDetails(err, "creating directory", "path", dir)
	}
	return nil
}

package store

import (
	"fmt"
	"io/fs"

	"emperror.dev/errors"
)

const (
	// ErrStoreIO reports a failure of the underlying file.
	ErrStoreIO = errors.Sentinel("store i/o error")

	// ErrCorruptRecord reports a malformed or truncated record.
	ErrCorruptRecord = errors.Sentinel("corrupt record")
)

func ioError(err error, op, path string) error {
	return errors.WithDetails(
		fmt.Errorf("%w: %s %s: %w", ErrStoreIO, op, path, err),
		"path", path,
	)
}

func corruptError(err error, path string, record uint64) error {
	return errors.WithDetails(
		fmt.Errorf("%w: record %d of %s: %w", ErrCorruptRecord, record, path, err),
		"path", path,
		"record", record,
	)
}

// readError classifies a failure while decoding the stream. Errors of the
// file itself are i/o errors, everything the decompressor or decoder rejects
// means the content is corrupt.
func readError(err error, path string, record uint64) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ioError(err, "read", path)
	}
	return corruptError(err, path, record)
}

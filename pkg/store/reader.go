package store

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"emperror.dev/errors"
	"github.com/c2h5oh/datasize"

	"github.com/voluzi/procscope/pkg/metrics"
)

// MaxRecordSize bounds the payload length accepted by a Reader.
const MaxRecordSize = 16 * datasize.MB

// Reader replays a record log from start to end.
type Reader struct {
	path        string
	file        *os.File
	stream      *bufio.Reader
	closeStream func() error
	payload     []byte
	records     uint64
	err         error
}

// Open opens an existing record log for sequential reading.
func Open(path string, opts ...Option) (*Reader, error) {
	format, err := NewFormat(opts...)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, ioError(err, "open", path)
	}

	r := &Reader{path: path, file: file}
	raw := bufio.NewReaderSize(file, format.bufferBytes())
	decompressed, closeStream, err := format.Compression.newReader(raw)
	switch {
	case errors.Is(err, io.EOF):
		// Some decompressors read a header eagerly; an empty file has none.
		r.err = io.EOF
	case err != nil:
		_ = file.Close()
		return nil, readError(err, path, 0)
	default:
		r.stream = bufio.NewReader(decompressed)
		r.closeStream = closeStream
	}
	return r, nil
}

// Read decodes the next snapshot. It returns io.EOF once the log ends at a
// record boundary and an ErrCorruptRecord error for malformed or truncated
// records. Errors are sticky.
func (r *Reader) Read() (metrics.Snapshot, error) {
	if r.err != nil {
		return metrics.Snapshot{}, r.err
	}
	s, err := r.next()
	if err != nil {
		r.err = err
		return metrics.Snapshot{}, err
	}
	r.records++
	return s, nil
}

func (r *Reader) next() (metrics.Snapshot, error) {
	size, err := binary.ReadUvarint(r.stream)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return metrics.Snapshot{}, io.EOF
		}
		return metrics.Snapshot{}, readError(fmt.Errorf("reading length: %w", err), r.path, r.records)
	}
	if size > MaxRecordSize.Bytes() {
		return metrics.Snapshot{}, corruptError(fmt.Errorf("length %d exceeds %s", size, MaxRecordSize.HumanReadable()), r.path, r.records)
	}

	if uint64(cap(r.payload)) < size {
		r.payload = make([]byte, size)
	}
	r.payload = r.payload[:size]
	if _, err := io.ReadFull(r.stream, r.payload); err != nil {
		return metrics.Snapshot{}, readError(fmt.Errorf("reading payload: %w", err), r.path, r.records)
	}

	s, err := decodeSnapshot(r.payload)
	if err != nil {
		return metrics.Snapshot{}, corruptError(err, r.path, r.records)
	}
	return s, nil
}

// Records returns the number of snapshots decoded so far.
func (r *Reader) Records() uint64 {
	return r.records
}

// Close releases the decompressor and closes the file.
func (r *Reader) Close() error {
	var errs error
	if r.closeStream != nil {
		errs = errors.Append(errs, r.closeStream())
	}
	if err := r.file.Close(); err != nil {
		errs = errors.Append(errs, ioError(err, "close", r.path))
	}
	return errs
}

// ReadAll decodes every snapshot of the log at path, in order. When the log
// is corrupt the snapshots decoded before the damaged record are returned
// along with the error.
func ReadAll(path string, opts ...Option) ([]metrics.Snapshot, error) {
	r, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var snapshots []metrics.Snapshot
	for {
		s, err := r.Read()
		if errors.Is(err, io.EOF) {
			return snapshots, nil
		}
		if err != nil {
			return snapshots, err
		}
		snapshots = append(snapshots, s)
	}
}

package store

import (
	"bufio"
	"os"

	"emperror.dev/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/voluzi/procscope/pkg/metrics"
)

// Writer appends snapshots to a record log. It is not safe for concurrent use.
type Writer struct {
	path    string
	format  Format
	file    *os.File
	buf     *bufio.Writer
	stream  streamWriter
	payload []byte
	frame   []byte
	records uint64
	closed  bool
}

// Create creates or truncates the file at path and returns a Writer for it.
func Create(path string, opts ...Option) (*Writer, error) {
	format, err := NewFormat(opts...)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, ioError(err, "create", path)
	}

	buf := bufio.NewWriterSize(file, format.bufferBytes())
	stream, err := format.Compression.newWriter(buf)
	if err != nil {
		_ = file.Close()
		return nil, ioError(err, "create", path)
	}

	return &Writer{
		path:   path,
		format: format,
		file:   file,
		buf:    buf,
		stream: stream,
	}, nil
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string {
	return w.path
}

// Records returns the number of snapshots written so far.
func (w *Writer) Records() uint64 {
	return w.records
}

// Write appends one snapshot frame: the varint encoded payload length
// followed by the payload, both fed through the stream compressor.
func (w *Writer) Write(s metrics.Snapshot) error {
	if w.closed {
		return ioError(os.ErrClosed, "write", w.path)
	}

	w.payload = appendSnapshot(w.payload[:0], s)
	w.frame = protowire.AppendVarint(w.frame[:0], uint64(len(w.payload)))
	w.frame = append(w.frame, w.payload...)

	if _, err := w.stream.Write(w.frame); err != nil {
		return ioError(err, "write", w.path)
	}
	w.records++
	return nil
}

// Flush pushes everything written so far to the OS and syncs the file. After
// a successful Flush no previously written record can be lost.
func (w *Writer) Flush() error {
	if w.closed {
		return ioError(os.ErrClosed, "flush", w.path)
	}
	if err := w.stream.Flush(); err != nil {
		return ioError(err, "flush", w.path)
	}
	if err := w.buf.Flush(); err != nil {
		return ioError(err, "flush", w.path)
	}
	if err := w.file.Sync(); err != nil {
		return ioError(err, "sync", w.path)
	}
	return nil
}

// Close ends the compressed stream, syncs and closes the file. Calling Close
// more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs error
	if err := w.stream.Close(); err != nil {
		errs = errors.Append(errs, ioError(err, "close", w.path))
	}
	if err := w.buf.Flush(); err != nil {
		errs = errors.Append(errs, ioError(err, "flush", w.path))
	}
	if err := w.file.Sync(); err != nil {
		errs = errors.Append(errs, ioError(err, "sync", w.path))
	}
	if err := w.file.Close(); err != nil {
		errs = errors.Append(errs, ioError(err, "close", w.path))
	}
	return errs
}

package store

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
)

// streamWriter is a compressing writer that can push buffered data downstream
// without ending the stream.
type streamWriter interface {
	io.Writer
	Flush() error
	Close() error
}

type passthroughWriter struct {
	io.Writer
}

func (passthroughWriter) Flush() error { return nil }
func (passthroughWriter) Close() error { return nil }

func (c Compression) newWriter(w io.Writer) (streamWriter, error) {
	switch c {
	case None:
		return passthroughWriter{w}, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedFastest),
			zstd.WithEncoderConcurrency(1),
		)
	case Gzip:
		return pgzip.NewWriterLevel(w, pgzip.BestSpeed)
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
}

// newReader wraps r with the matching decompressor. The returned close
// function releases decompressor resources, it never closes r.
func (c Compression) newReader(r io.Reader) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch c {
	case None:
		return r, noop, nil
	case Snappy:
		return snappy.NewReader(r), noop, nil
	case LZ4:
		return lz4.NewReader(r), noop, nil
	case Zstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil
	case Gzip:
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", c)
	}
}

package store

import (
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"
)

// Compression selects the streaming compressor applied to the record stream.
type Compression string

const (
	None   Compression = "none"
	Snappy Compression = "snappy"
	LZ4    Compression = "lz4"
	Zstd   Compression = "zstd"
	Gzip   Compression = "gzip"

	DefaultCompression = Snappy
	DefaultBufferSize  = "64KB"
)

// Compressions lists every supported compression.
var Compressions = []Compression{None, Snappy, LZ4, Zstd, Gzip}

// ParseCompression converts a user supplied name into a Compression.
func ParseCompression(s string) (Compression, error) {
	c := Compression(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Compressions {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported compression %q", s)
}

// Format is the encoding configuration shared by writers and readers. It is
// built once from options and never changed afterwards. A log must be read
// with the same compression it was written with.
type Format struct {
	Compression Compression
	BufferSize  datasize.ByteSize

	err error
}

func defaultFormat() *Format {
	return &Format{
		Compression: DefaultCompression,
		BufferSize:  datasize.MustParseString(DefaultBufferSize),
	}
}

// Option is a functional option for configuring a Format.
type Option func(*Format)

// WithCompression sets the stream compressor.
func WithCompression(c Compression) Option {
	return func(f *Format) {
		f.Compression = c
	}
}

// WithBufferSize sets the size of the file buffer, e.g. "64KB".
func WithBufferSize(size string) Option {
	return func(f *Format) {
		v, err := datasize.ParseString(size)
		if err != nil {
			f.err = fmt.Errorf("invalid buffer size %q: %w", size, err)
			return
		}
		f.BufferSize = v
	}
}

// NewFormat applies opts over the defaults and validates the result.
func NewFormat(opts ...Option) (Format, error) {
	format := defaultFormat()
	for _, opt := range opts {
		opt(format)
	}
	if format.err != nil {
		return Format{}, format.err
	}
	if _, err := ParseCompression(string(format.Compression)); err != nil {
		return Format{}, err
	}
	if format.BufferSize < datasize.B*16 {
		return Format{}, fmt.Errorf("buffer size %s is too small", format.BufferSize.HumanReadable())
	}
	return *format, nil
}

func (f Format) bufferBytes() int {
	return int(f.BufferSize.Bytes())
}

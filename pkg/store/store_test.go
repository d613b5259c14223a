package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluzi/procscope/pkg/metrics"
)

func syntheticSnapshots(n int) []metrics.Snapshot {
	snapshots := make([]metrics.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		v := uint64(i)
		s := metrics.Snapshot{
			Memory: metrics.Memory{
				RSS: 1<<20 + v*4096,
				VMS: 1<<30 + v*8192,
			},
			CPUTime: metrics.CPUTime{
				User:   float64(i) * 0.125,
				System: float64(i) * 0.0625,
			},
			CPUUsage: float64(i%7) * 3.5,
			IO: metrics.IO{
				BytesWritten: v * 100,
				BytesRead:    v * 200,
			},
			NetIO: map[string]metrics.NetIO{},
		}
		if i%2 == 0 {
			s.Memory.Shared = metrics.Uint64(v * 10)
			s.Memory.Text = metrics.Uint64(4096)
			s.Memory.Data = metrics.Uint64(v * 30)
			s.IO.DiskWritten = metrics.Uint64(v * 50)
			s.IO.DiskRead = metrics.Uint64(0)
			s.IO.SyscallWritten = metrics.Uint64(v)
			s.IO.SyscallRead = metrics.Uint64(v * 2)
		}
		for j := 0; j < i%3; j++ {
			s.NetIO[fmt.Sprintf("eth%d", j)] = metrics.NetIO{
				BytesSent:   v * 1000,
				BytesRecv:   v * 2000,
				PacketsSent: v,
				PacketsRecv: v * 2,
				ErrorsSent:  uint64(j),
				DropRecv:    1,
			}
		}
		snapshots = append(snapshots, s)
	}
	return snapshots
}

func writeAll(t *testing.T, path string, snapshots []metrics.Snapshot, opts ...Option) {
	t.Helper()
	w, err := Create(path, opts...)
	require.NoError(t, err)
	for _, s := range snapshots {
		require.NoError(t, w.Write(s))
	}
	require.NoError(t, w.Close())
}

func TestStore_RoundTrip(t *testing.T) {
	for _, compression := range Compressions {
		t.Run(string(compression), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "roundtrip.procscope")
			expected := syntheticSnapshots(50)

			writeAll(t, path, expected, WithCompression(compression))

			got, err := ReadAll(path, WithCompression(compression))
			require.NoError(t, err)
			assert.Equal(t, expected, got)
		})
	}
}

func TestStore_ReadOneAtATime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sequential.procscope")
	expected := syntheticSnapshots(5)
	writeAll(t, path, expected)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	for i, want := range expected {
		got, err := r.Read()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want, got)
	}

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, uint64(5), r.Records())
}

func TestStore_EmptyLog(t *testing.T) {
	for _, compression := range []Compression{None, Snappy, Zstd, Gzip} {
		t.Run(string(compression), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "empty.procscope")
			writeAll(t, path, nil, WithCompression(compression))

			got, err := ReadAll(path, WithCompression(compression))
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_FlushIsIdempotent(t *testing.T) {
	for _, compression := range Compressions {
		t.Run(string(compression), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "flush.procscope")
			expected := syntheticSnapshots(9)

			w, err := Create(path, WithCompression(compression))
			require.NoError(t, err)
			for i, s := range expected {
				require.NoError(t, w.Write(s))
				if i%3 == 2 {
					require.NoError(t, w.Flush())
					require.NoError(t, w.Flush())
					require.NoError(t, w.Flush())
				}
			}
			require.NoError(t, w.Flush())
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			got, err := ReadAll(path, WithCompression(compression))
			require.NoError(t, err)
			assert.Equal(t, expected, got)
		})
	}
}

func TestStore_FlushMakesRecordsVisible(t *testing.T) {
	for _, compression := range []Compression{None, Snappy, LZ4} {
		t.Run(string(compression), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "visible.procscope")
			expected := syntheticSnapshots(4)

			w, err := Create(path, WithCompression(compression))
			require.NoError(t, err)
			for _, s := range expected {
				require.NoError(t, w.Write(s))
			}
			require.NoError(t, w.Flush())

			// The writer is still open, as after a crash.
			got, err := ReadAll(path, WithCompression(compression))
			require.NoError(t, err)
			assert.Equal(t, expected, got)
			require.NoError(t, w.Close())
		})
	}
}

func TestStore_UnterminatedStream(t *testing.T) {
	for _, compression := range []Compression{Zstd, Gzip} {
		t.Run(string(compression), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "unterminated.procscope")
			expected := syntheticSnapshots(6)

			w, err := Create(path, WithCompression(compression))
			require.NoError(t, err)
			for _, s := range expected {
				require.NoError(t, w.Write(s))
			}
			require.NoError(t, w.Flush())

			// Every flushed record is recovered, the missing stream end
			// is reported after them.
			got, err := ReadAll(path, WithCompression(compression))
			assert.ErrorIs(t, err, ErrCorruptRecord)
			assert.Equal(t, expected, got)
			require.NoError(t, w.Close())
		})
	}
}

func TestStore_TruncatedMidFrame(t *testing.T) {
	for _, compression := range Compressions {
		t.Run(string(compression), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "truncated.procscope")
			writeAll(t, path, syntheticSnapshots(20), WithCompression(compression))

			info, err := os.Stat(path)
			require.NoError(t, err)
			require.NoError(t, os.Truncate(path, info.Size()-3))

			// Depending on the codec the cut lands in a frame or in the
			// stream trailer; both must surface as corruption.
			got, err := ReadAll(path, WithCompression(compression))
			assert.ErrorIs(t, err, ErrCorruptRecord)
			assert.LessOrEqual(t, len(got), 20)
		})
	}
}

func TestStore_TruncatedInsideLastPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.procscope")
	expected := syntheticSnapshots(3)
	writeAll(t, path, expected, WithCompression(None))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-2))

	got, err := ReadAll(path, WithCompression(None))
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.Equal(t, expected[:2], got)
}

func TestStore_CorruptErrorChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.procscope")
	writeAll(t, path, syntheticSnapshots(3), WithCompression(None))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-2))

	_, err = ReadAll(path, WithCompression(None))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptRecord))
	assert.False(t, errors.Is(err, ErrStoreIO))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotContains(t, err.Error(), "%!")
	assert.Contains(t, err.Error(), "corrupt record: record 2 of "+path)
	assert.Equal(t, []interface{}{"path", path, "record", uint64(2)}, errors.GetDetails(err))
}

func TestStore_IOErrorChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.procscope")
	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreIO))
	assert.False(t, errors.Is(err, ErrCorruptRecord))
	assert.NotContains(t, err.Error(), "%!")
	assert.Contains(t, err.Error(), "store i/o error: open "+path)
}

func TestStore_MalformedLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "length.procscope")
	// Ten continuation bytes overflow a 64-bit varint.
	garbage := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	_, err := ReadAll(path, WithCompression(None))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestStore_OversizedLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oversized.procscope")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0644))

	_, err := ReadAll(path, WithCompression(None))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestStore_MalformedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.procscope")
	// Length 3 followed by an invalid presence marker for memory.shared.
	require.NoError(t, os.WriteFile(path, []byte{0x03, 0x01, 0x01, 0x07}, 0644))

	_, err := ReadAll(path, WithCompression(None))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestStore_WrongCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mismatch.procscope")
	writeAll(t, path, syntheticSnapshots(3), WithCompression(None))

	_, err := ReadAll(path, WithCompression(Snappy))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestStore_OpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.procscope"))
	assert.ErrorIs(t, err, ErrStoreIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_CreateInMissingDirectory(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "nope", "x.procscope"))
	assert.ErrorIs(t, err, ErrStoreIO)
}

func TestStore_WriteAfterClose(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "closed.procscope"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Write(syntheticSnapshots(1)[0]), ErrStoreIO)
	assert.ErrorIs(t, w.Flush(), ErrStoreIO)
}

func TestFormat_Options(t *testing.T) {
	format, err := NewFormat()
	require.NoError(t, err)
	assert.Equal(t, DefaultCompression, format.Compression)
	assert.Equal(t, "64KB", format.BufferSize.String())

	format, err = NewFormat(WithCompression(Zstd), WithBufferSize("1MB"))
	require.NoError(t, err)
	assert.Equal(t, Zstd, format.Compression)
	assert.Equal(t, "1MB", format.BufferSize.String())

	_, err = NewFormat(WithCompression("brotli"))
	assert.Error(t, err)

	_, err = NewFormat(WithBufferSize("1B"))
	assert.Error(t, err)

	_, err = NewFormat(WithBufferSize("lots"))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		input   string
		want    Compression
		wantErr bool
	}{
		{"snappy", Snappy, false},
		{" LZ4 ", LZ4, false},
		{"none", None, false},
		{"gzip", Gzip, false},
		{"zstd", Zstd, false},
		{"xz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompression(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

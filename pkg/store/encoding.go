package store

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/voluzi/procscope/pkg/metrics"
)

// The payload layout is positional: fields are written in declaration order
// without tags. Integers are unsigned varints, floats are little-endian
// 64-bit words, optional counters carry a presence varint (0 or 1) and the
// interface map is a count followed by entries sorted by name.

func appendOptional(b []byte, v *uint64) []byte {
	if v == nil {
		return protowire.AppendVarint(b, 0)
	}
	b = protowire.AppendVarint(b, 1)
	return protowire.AppendVarint(b, *v)
}

func appendFloat(b []byte, v float64) []byte {
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendSnapshot(b []byte, s metrics.Snapshot) []byte {
	b = protowire.AppendVarint(b, s.Memory.RSS)
	b = protowire.AppendVarint(b, s.Memory.VMS)
	b = appendOptional(b, s.Memory.Shared)
	b = appendOptional(b, s.Memory.Text)
	b = appendOptional(b, s.Memory.Data)

	b = appendFloat(b, s.CPUTime.User)
	b = appendFloat(b, s.CPUTime.System)
	b = appendFloat(b, s.CPUUsage)

	b = protowire.AppendVarint(b, s.IO.BytesWritten)
	b = protowire.AppendVarint(b, s.IO.BytesRead)
	b = appendOptional(b, s.IO.DiskWritten)
	b = appendOptional(b, s.IO.DiskRead)
	b = appendOptional(b, s.IO.SyscallWritten)
	b = appendOptional(b, s.IO.SyscallRead)

	names := s.Interfaces()
	b = protowire.AppendVarint(b, uint64(len(names)))
	for _, name := range names {
		n := s.NetIO[name]
		b = protowire.AppendString(b, name)
		b = protowire.AppendVarint(b, n.BytesSent)
		b = protowire.AppendVarint(b, n.BytesRecv)
		b = protowire.AppendVarint(b, n.PacketsSent)
		b = protowire.AppendVarint(b, n.PacketsRecv)
		b = protowire.AppendVarint(b, n.ErrorsSent)
		b = protowire.AppendVarint(b, n.ErrorsRecv)
		b = protowire.AppendVarint(b, n.DropSent)
		b = protowire.AppendVarint(b, n.DropRecv)
	}
	return b
}

// decoder consumes a payload. The first failure is sticky and every later
// call returns zero values.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(n int, field string) {
	if d.err == nil {
		d.err = fmt.Errorf("decoding %s: %w", field, protowire.ParseError(n))
	}
}

func (d *decoder) varint(field string) uint64 {
	if d.err != nil {
		return 0
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.fail(n, field)
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) float(field string) float64 {
	if d.err != nil {
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.buf)
	if n < 0 {
		d.fail(n, field)
		return 0
	}
	d.buf = d.buf[n:]
	return math.Float64frombits(v)
}

func (d *decoder) optional(field string) *uint64 {
	switch present := d.varint(field); {
	case d.err != nil:
		return nil
	case present == 0:
		return nil
	case present == 1:
		return metrics.Uint64(d.varint(field))
	default:
		d.err = fmt.Errorf("decoding %s: invalid presence marker %d", field, present)
		return nil
	}
}

func (d *decoder) text(field string) string {
	if d.err != nil {
		return ""
	}
	v, n := protowire.ConsumeString(d.buf)
	if n < 0 {
		d.fail(n, field)
		return ""
	}
	d.buf = d.buf[n:]
	return v
}

func decodeSnapshot(payload []byte) (metrics.Snapshot, error) {
	d := &decoder{buf: payload}
	var s metrics.Snapshot

	s.Memory.RSS = d.varint("memory.rss")
	s.Memory.VMS = d.varint("memory.vms")
	s.Memory.Shared = d.optional("memory.shared")
	s.Memory.Text = d.optional("memory.text")
	s.Memory.Data = d.optional("memory.data")

	s.CPUTime.User = d.float("cpu_time.user")
	s.CPUTime.System = d.float("cpu_time.system")
	s.CPUUsage = d.float("cpu_usage")

	s.IO.BytesWritten = d.varint("io.bytes_written")
	s.IO.BytesRead = d.varint("io.bytes_read")
	s.IO.DiskWritten = d.optional("io.disk_written")
	s.IO.DiskRead = d.optional("io.disk_read")
	s.IO.SyscallWritten = d.optional("io.syscall_written")
	s.IO.SyscallRead = d.optional("io.syscall_read")

	count := d.varint("net_io.count")
	// Every entry takes at least 9 bytes, anything larger cannot be valid.
	if d.err == nil && count > uint64(len(d.buf)/9) {
		return metrics.Snapshot{}, fmt.Errorf("decoding net_io: %d entries in %d bytes", count, len(d.buf))
	}
	s.NetIO = make(map[string]metrics.NetIO, count)
	for i := uint64(0); i < count && d.err == nil; i++ {
		name := d.text("net_io.name")
		s.NetIO[name] = metrics.NetIO{
			BytesSent:   d.varint("net_io.bytes_sent"),
			BytesRecv:   d.varint("net_io.bytes_recv"),
			PacketsSent: d.varint("net_io.packets_sent"),
			PacketsRecv: d.varint("net_io.packets_recv"),
			ErrorsSent:  d.varint("net_io.errors_sent"),
			ErrorsRecv:  d.varint("net_io.errors_recv"),
			DropSent:    d.varint("net_io.drop_sent"),
			DropRecv:    d.varint("net_io.drop_recv"),
		}
	}

	if d.err != nil {
		return metrics.Snapshot{}, d.err
	}
	if len(d.buf) > 0 {
		return metrics.Snapshot{}, fmt.Errorf("%d trailing bytes after snapshot", len(d.buf))
	}
	return s, nil
}

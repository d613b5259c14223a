package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
)

func humanBytes(v uint64) string {
	return datasize.ByteSize(v).HumanReadable()
}

func optionalBytes(p *uint64) string {
	if p == nil {
		return "-"
	}
	return humanBytes(*p)
}

func optionalCount(p *uint64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

func (m Memory) String() string {
	return fmt.Sprintf("rss=%s vms=%s shared=%s text=%s data=%s",
		humanBytes(m.RSS), humanBytes(m.VMS),
		optionalBytes(m.Shared), optionalBytes(m.Text), optionalBytes(m.Data))
}

func (t CPUTime) String() string {
	return fmt.Sprintf("user=%s system=%s", seconds(t.User), seconds(t.System))
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Round(time.Microsecond)
}

func (io IO) String() string {
	return fmt.Sprintf("written=%s read=%s disk_written=%s disk_read=%s syscall_written=%s syscall_read=%s",
		humanBytes(io.BytesWritten), humanBytes(io.BytesRead),
		optionalBytes(io.DiskWritten), optionalBytes(io.DiskRead),
		optionalCount(io.SyscallWritten), optionalCount(io.SyscallRead))
}

func (n NetIO) String() string {
	return fmt.Sprintf("sent=%s recv=%s packets=%d/%d errors=%d/%d drops=%d/%d",
		humanBytes(n.BytesSent), humanBytes(n.BytesRecv),
		n.PacketsSent, n.PacketsRecv, n.ErrorsSent, n.ErrorsRecv, n.DropSent, n.DropRecv)
}

// Interfaces returns the network interface names in sorted order.
func (s Snapshot) Interfaces() []string {
	names := make([]string, 0, len(s.NetIO))
	for name := range s.NetIO {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "memory{%s} cpu_time{%s} cpu_usage=%.2f%% io{%s}",
		s.Memory, s.CPUTime, s.CPUUsage, s.IO)
	for _, name := range s.Interfaces() {
		fmt.Fprintf(&b, " net[%s]{%s}", name, s.NetIO[name])
	}
	return b.String()
}

//go:build linux

package procstats

import (
	"context"

	"github.com/prometheus/procfs"

	"github.com/voluzi/procscope/pkg/metrics"
)

func (p *OSProcess) Memory(ctx context.Context) (metrics.Memory, error) {
	mem, err := p.proc.MemoryInfoExWithContext(ctx)
	if err != nil {
		return metrics.Memory{}, queryError(err, p.Pid(), "memory")
	}
	return metrics.Memory{
		RSS:    mem.RSS,
		VMS:    mem.VMS,
		Shared: metrics.Uint64(mem.Shared),
		Text:   metrics.Uint64(mem.Text),
		Data:   metrics.Uint64(mem.Data),
	}, nil
}

// IO reads /proc/<pid>/io. Character counters are reported as bytes, storage
// counters as disk bytes.
func (p *OSProcess) IO(_ context.Context) (metrics.IO, error) {
	proc, err := procfs.NewProc(int(p.Pid()))
	if err != nil {
		return metrics.IO{}, queryError(err, p.Pid(), "io")
	}
	stat, err := proc.IO()
	if err != nil {
		return metrics.IO{}, queryError(err, p.Pid(), "io")
	}
	return metrics.IO{
		BytesWritten:   stat.WChar,
		BytesRead:      stat.RChar,
		DiskWritten:    metrics.Uint64(stat.WriteBytes),
		DiskRead:       metrics.Uint64(stat.ReadBytes),
		SyscallWritten: metrics.Uint64(stat.SyscW),
		SyscallRead:    metrics.Uint64(stat.SyscR),
	}, nil
}

// NetIO reads the per interface counters of the network namespace the
// process lives in.
func (p *OSProcess) NetIO(ctx context.Context) (map[string]metrics.NetIO, error) {
	counters, err := p.proc.NetIOCountersWithContext(ctx, true)
	if err != nil {
		return nil, queryError(err, p.Pid(), "net io")
	}
	result := make(map[string]metrics.NetIO, len(counters))
	for _, c := range counters {
		result[c.Name] = metrics.NetIO{
			BytesSent:   c.BytesSent,
			BytesRecv:   c.BytesRecv,
			PacketsSent: c.PacketsSent,
			PacketsRecv: c.PacketsRecv,
			ErrorsSent:  c.Errout,
			ErrorsRecv:  c.Errin,
			DropSent:    c.Dropout,
			DropRecv:    c.Dropin,
		}
	}
	return result, nil
}

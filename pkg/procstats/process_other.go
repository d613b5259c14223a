//go:build !linux

package procstats

import (
	"context"
	"strings"

	"github.com/voluzi/procscope/pkg/metrics"
)

func (p *OSProcess) Memory(ctx context.Context) (metrics.Memory, error) {
	mem, err := p.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return metrics.Memory{}, queryError(err, p.Pid(), "memory")
	}
	return metrics.Memory{
		RSS: mem.RSS,
		VMS: mem.VMS,
	}, nil
}

// IO returns zero counters where gopsutil has no implementation for the
// platform.
func (p *OSProcess) IO(ctx context.Context) (metrics.IO, error) {
	stat, err := p.proc.IOCountersWithContext(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "not implemented") {
			return metrics.IO{}, nil
		}
		return metrics.IO{}, queryError(err, p.Pid(), "io")
	}
	return metrics.IO{
		BytesWritten: stat.WriteBytes,
		BytesRead:    stat.ReadBytes,
	}, nil
}

// NetIO is empty: per process interface accounting only exists on linux.
func (p *OSProcess) NetIO(_ context.Context) (map[string]metrics.NetIO, error) {
	return map[string]metrics.NetIO{}, nil
}

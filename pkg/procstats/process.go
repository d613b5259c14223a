package procstats

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"

	"github.com/voluzi/procscope/pkg/metrics"
)

const (
	ErrProcessNotFound    = errors.Sentinel("process not found")
	ErrProcessQueryFailed = errors.Sentinel("process query failed")
)

// Process exposes the metrics of one running OS process.
type Process interface {
	Pid() int32
	IsRunning(ctx context.Context) (bool, error)
	Memory(ctx context.Context) (metrics.Memory, error)
	CPUTime(ctx context.Context) (metrics.CPUTime, error)
	IO(ctx context.Context) (metrics.IO, error)
	NetIO(ctx context.Context) (map[string]metrics.NetIO, error)
}

// OSProcess is a Process backed by gopsutil.
type OSProcess struct {
	proc *process.Process
}

var _ Process = &OSProcess{}

// FindByPid returns the process with the given pid.
func FindByPid(ctx context.Context, pid int32) (*OSProcess, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return nil, errors.WithDetails(fmt.Errorf("%w: pid %d", ErrProcessNotFound, pid), "pid", pid)
	}
	if err != nil {
		return nil, queryError(err, pid, "lookup")
	}
	return &OSProcess{proc: proc}, nil
}

// FindByName scans all processes and returns the first one whose name is an
// exact match.
func FindByName(ctx context.Context, name string) (*OSProcess, error) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing processes: %w", ErrProcessQueryFailed, err)
	}

	for _, proc := range processes {
		pname, err := proc.NameWithContext(ctx)
		if err == nil && pname == name {
			return &OSProcess{proc: proc}, nil
		}
	}
	return nil, errors.WithDetails(fmt.Errorf("%w: no process named %s", ErrProcessNotFound, name), "name", name)
}

func queryError(err error, pid int32, what string) error {
	return errors.WithDetails(fmt.Errorf("%w: %s: %w", ErrProcessQueryFailed, what, err), "pid", pid)
}

func (p *OSProcess) Pid() int32 {
	return p.proc.Pid
}

func (p *OSProcess) IsRunning(ctx context.Context) (bool, error) {
	running, err := p.proc.IsRunningWithContext(ctx)
	if err != nil {
		return false, queryError(err, p.Pid(), "status")
	}
	return running, nil
}

// Name returns the executable name of the process.
func (p *OSProcess) Name(ctx context.Context) (string, error) {
	name, err := p.proc.NameWithContext(ctx)
	if err != nil {
		return "", queryError(err, p.Pid(), "name")
	}
	return name, nil
}

func (p *OSProcess) CPUTime(ctx context.Context) (metrics.CPUTime, error) {
	times, err := p.proc.TimesWithContext(ctx)
	if err != nil {
		return metrics.CPUTime{}, queryError(err, p.Pid(), "cpu times")
	}
	return metrics.CPUTime{
		User:   times.User,
		System: times.System,
	}, nil
}

// LogicalCores returns the number of logical CPUs of the host.
func LogicalCores(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Collect queries every metric of p once. The tracker turns the cumulative
// CPU time into a usage percentage relative to its previous observation.
func Collect(ctx context.Context, p Process, tracker *metrics.UsageTracker, now time.Time) (metrics.Snapshot, error) {
	mem, err := p.Memory(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	cpuTime, err := p.CPUTime(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	io, err := p.IO(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	netIO, err := p.NetIO(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	if netIO == nil {
		netIO = map[string]metrics.NetIO{}
	}

	return metrics.Snapshot{
		Memory:   mem,
		CPUTime:  cpuTime,
		CPUUsage: tracker.Observe(metrics.CPUSample{Timestamp: now, CPUTimeSec: cpuTime.Total()}),
		IO:       io,
		NetIO:    netIO,
	}, nil
}

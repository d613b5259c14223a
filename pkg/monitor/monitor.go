package monitor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/procscope/pkg/metrics"
	"github.com/voluzi/procscope/pkg/procstats"
	"github.com/voluzi/procscope/pkg/shutdown"
	"github.com/voluzi/procscope/pkg/store"
)

const (
	ErrProcessNotFound  = procstats.ErrProcessNotFound
	ErrCollectionFailed = errors.Sentinel("metrics collection failed")
)

// FileExtension is appended to every record log created by a Monitor.
const FileExtension = ".procscope"

// Recorder persists snapshots. *store.Writer implements it.
type Recorder interface {
	Write(metrics.Snapshot) error
	Flush() error
	Close() error
}

// Monitor samples one process on a fixed interval and appends every snapshot
// to its own record log.
type Monitor struct {
	process  procstats.Process
	recorder Recorder
	handle   *shutdown.Handle
	tracker  *metrics.UsageTracker
	now      func() time.Time
	path     string
	ticks    uint64
	logger   *log.Entry
}

const timeLayout = "2006-01-02_15-04-05"

// FileName returns the record log path for a process started at t.
func FileName(dir string, pid int32, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%d-%s%s", pid, t.Format(timeLayout), FileExtension))
}

// ParseFileName recovers the pid and start time from a path built by
// FileName.
func ParseFileName(path string) (int32, time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(path), FileExtension)
	pidPart, timePart, ok := strings.Cut(base, "-")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%s is not a record log name", filepath.Base(path))
	}
	pid, err := strconv.ParseInt(pidPart, 10, 32)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parsing pid of %s: %w", filepath.Base(path), err)
	}
	start, err := time.ParseInLocation(timeLayout, timePart, time.Local)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parsing start time of %s: %w", filepath.Base(path), err)
	}
	return int32(pid), start, nil
}

// FromPid creates a Monitor for the process with the given pid. The handle is
// released when construction fails.
func FromPid(ctx context.Context, pid int32, handle *shutdown.Handle, opts ...Option) (*Monitor, error) {
	proc, err := procstats.FindByPid(ctx, pid)
	if err != nil {
		handle.Release()
		return nil, err
	}
	return New(ctx, proc, handle, opts...)
}

// FromName creates a Monitor for the first process whose name matches exactly.
// The handle is released when construction fails.
func FromName(ctx context.Context, name string, handle *shutdown.Handle, opts ...Option) (*Monitor, error) {
	proc, err := procstats.FindByName(ctx, name)
	if err != nil {
		handle.Release()
		return nil, err
	}
	return New(ctx, proc, handle, opts...)
}

// New creates a fresh record log for proc and returns a Monitor writing to it.
func New(ctx context.Context, proc procstats.Process, handle *shutdown.Handle, opts ...Option) (*Monitor, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	path := FileName(options.OutDir, proc.Pid(), options.Now())
	w, err := store.Create(path, options.StoreOptions...)
	if err != nil {
		handle.Release()
		return nil, err
	}

	if options.Cores == 0 {
		opts = append(opts[:len(opts):len(opts)], WithCores(procstats.LogicalCores(ctx)))
	}
	m := NewWithRecorder(proc, w, handle, opts...)
	m.path = path
	return m, nil
}

// NewWithRecorder returns a Monitor that writes to the given recorder.
func NewWithRecorder(proc procstats.Process, recorder Recorder, handle *shutdown.Handle, opts ...Option) *Monitor {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	cores := options.Cores
	if cores == 0 {
		cores = procstats.LogicalCores(context.Background())
	}

	return &Monitor{
		process:  proc,
		recorder: recorder,
		handle:   handle,
		tracker:  metrics.NewUsageTracker(cores),
		now:      options.Now,
		logger:   log.WithField("pid", proc.Pid()),
	}
}

// Pid returns the monitored process id.
func (m *Monitor) Pid() int32 {
	return m.process.Pid()
}

// Path returns the record log file, empty when the Monitor was built around
// a custom recorder.
func (m *Monitor) Path() string {
	return m.path
}

// Run samples the process every frequency until the coordinator broadcasts
// stop, ctx ends or the process exits. The first sample is taken
// immediately. On return the recorder has been flushed and closed and the
// handle released. Run returns nil for a stop or a process exit.
func (m *Monitor) Run(ctx context.Context, frequency time.Duration) (err error) {
	defer m.handle.Release()
	defer func() {
		if finishErr := m.finish(); err == nil {
			err = finishErr
		}
	}()

	m.logger.WithField("frequency", frequency).Info("recording started")

	// Provider queries are never interrupted halfway; stop is observed
	// between ticks only.
	queryCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(frequency)
	defer ticker.Stop()

	for {
		if m.stopping(ctx) {
			m.logger.Info("shutdown requested")
			return nil
		}

		done, err := m.tick(queryCtx)
		if err != nil {
			m.logger.WithError(err).Error("recording failed")
			return err
		}
		if done {
			return nil
		}

		select {
		case <-m.handle.Stopping():
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (m *Monitor) stopping(ctx context.Context) bool {
	select {
	case <-m.handle.Stopping():
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// tick runs one sampling step. It returns true when the loop should end.
func (m *Monitor) tick(ctx context.Context) (bool, error) {
	m.ticks++
	if m.ticks%FlushEvery == 0 {
		if err := m.recorder.Flush(); err != nil {
			return true, errors.WithDetails(err, "pid", m.Pid(), "tick", m.ticks)
		}
	}

	running, err := m.process.IsRunning(ctx)
	if err != nil {
		m.logger.WithField("tick", m.ticks).WithError(err).Error("cannot query process status, assuming it exited")
		return true, nil
	}
	if !running {
		m.logger.Info("process is no longer running")
		return true, nil
	}

	snapshot, err := procstats.Collect(ctx, m.process, m.tracker, m.now())
	if err != nil {
		return true, errors.WithDetails(fmt.Errorf("%w: %w", ErrCollectionFailed, err), "pid", m.Pid(), "tick", m.ticks)
	}

	m.logger.WithField("tick", m.ticks).Debugf("recording %s", snapshot)
	if err := m.recorder.Write(snapshot); err != nil {
		return true, errors.WithDetails(err, "pid", m.Pid(), "tick", m.ticks)
	}
	return false, nil
}

func (m *Monitor) finish() error {
	m.logger.WithField("ticks", m.ticks).Info("stopping recording")
	var errs error
	errs = errors.Append(errs, m.recorder.Flush())
	errs = errors.Append(errs, m.recorder.Close())
	return errs
}

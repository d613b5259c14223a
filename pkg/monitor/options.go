package monitor

import (
	"time"

	"github.com/voluzi/procscope/pkg/store"
)

const (
	DefaultOutDir    = "."
	DefaultFrequency = 500 * time.Millisecond

	// FlushEvery is the number of ticks between forced durable flushes.
	FlushEvery = 3
)

func defaultOptions() *Options {
	return &Options{
		OutDir: DefaultOutDir,
		Now:    time.Now,
	}
}

type Options struct {
	OutDir       string
	StoreOptions []store.Option
	// Cores overrides the logical core count used for CPU usage. Zero means
	// the host value.
	Cores int
	Now   func() time.Time
}

type Option func(*Options)

func WithOutDir(dir string) Option {
	return func(opts *Options) {
		opts.OutDir = dir
	}
}

func WithStoreOptions(storeOpts ...store.Option) Option {
	return func(opts *Options) {
		opts.StoreOptions = append(opts.StoreOptions, storeOpts...)
	}
}

func WithCores(n int) Option {
	return func(opts *Options) {
		opts.Cores = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

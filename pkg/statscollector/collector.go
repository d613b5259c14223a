package statscollector

import (
	"sync"

	"github.com/voluzi/procscope/pkg/metrics"
)

// Collector keeps a bounded window of snapshots of one process.
type Collector struct {
	samples []metrics.Snapshot
	lock    sync.RWMutex

	// maxSamples is the maximum number of samples to retain, zero keeps all
	maxSamples int
}

// NewCollector creates a new Collector with a sample retention limit.
func NewCollector(maxSamples int) *Collector {
	return &Collector{
		samples:    make([]metrics.Snapshot, 0),
		maxSamples: maxSamples,
	}
}

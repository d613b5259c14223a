package statscollector

import "github.com/voluzi/procscope/pkg/metrics"

func rss(s metrics.Snapshot) uint64 { return s.Memory.RSS }

// AverageMemoryUsage returns the average resident memory in bytes.
func (sc *Collector) AverageMemoryUsage() uint64 {
	return average(collect(sc.GetSamples(), rss))
}

// PeakMemoryUsage returns the highest resident memory in bytes.
func (sc *Collector) PeakMemoryUsage() uint64 {
	return peak(collect(sc.GetSamples(), rss))
}

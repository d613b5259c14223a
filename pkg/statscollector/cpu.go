package statscollector

import "github.com/voluzi/procscope/pkg/metrics"

func cpuUsage(s metrics.Snapshot) float64 { return s.CPUUsage }

// AverageCPUUsage returns the mean recorded CPU usage percentage. The oldest
// sample has no baseline and is skipped.
func (sc *Collector) AverageCPUUsage() float64 {
	samples := sc.GetSamples()
	if len(samples) < 2 {
		return 0
	}
	return average(collect(samples[1:], cpuUsage))
}

// PeakCPUUsage returns the highest recorded CPU usage percentage.
func (sc *Collector) PeakCPUUsage() float64 {
	return peak(collect(sc.GetSamples(), cpuUsage))
}

// CPUTime returns the CPU seconds consumed between the oldest and newest
// samples.
func (sc *Collector) CPUTime() float64 {
	samples := sc.GetSamples()
	if len(samples) < 2 {
		return 0
	}
	return samples[len(samples)-1].CPUTime.Total() - samples[0].CPUTime.Total()
}

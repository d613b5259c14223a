package statscollector

import (
	"github.com/c2h5oh/datasize"
	log "github.com/sirupsen/logrus"
)

// Summary aggregates the retained window.
type Summary struct {
	Samples         int
	AverageCPUUsage float64
	PeakCPUUsage    float64
	CPUTime         float64
	AverageRSS      uint64
	PeakRSS         uint64
	IO              IOTotals
}

// Summary computes every aggregate at once.
func (sc *Collector) Summary() Summary {
	return Summary{
		Samples:         len(sc.GetSamples()),
		AverageCPUUsage: sc.AverageCPUUsage(),
		PeakCPUUsage:    sc.PeakCPUUsage(),
		CPUTime:         sc.CPUTime(),
		AverageRSS:      sc.AverageMemoryUsage(),
		PeakRSS:         sc.PeakMemoryUsage(),
		IO:              sc.IOUsage(),
	}
}

// Fields returns the summary as log fields.
func (s Summary) Fields() log.Fields {
	return log.Fields{
		"samples":       s.Samples,
		"cpu_avg":       s.AverageCPUUsage,
		"cpu_peak":      s.PeakCPUUsage,
		"cpu_seconds":   s.CPUTime,
		"rss_avg":       datasize.ByteSize(s.AverageRSS).HumanReadable(),
		"rss_peak":      datasize.ByteSize(s.PeakRSS).HumanReadable(),
		"bytes_written": datasize.ByteSize(s.IO.Written).HumanReadable(),
		"bytes_read":    datasize.ByteSize(s.IO.Read).HumanReadable(),
	}
}

package statscollector

import "github.com/voluzi/procscope/pkg/metrics"

// IOTotals holds the bytes moved between the oldest and newest samples.
type IOTotals struct {
	Written uint64
	Read    uint64
}

func delta(first, last uint64) uint64 {
	if last < first {
		return 0
	}
	return last - first
}

// IOUsage returns the I/O performed inside the retained window.
func (sc *Collector) IOUsage() IOTotals {
	samples := sc.GetSamples()
	if len(samples) < 2 {
		return IOTotals{}
	}
	first, last := samples[0].IO, samples[len(samples)-1].IO
	return IOTotals{
		Written: delta(first.BytesWritten, last.BytesWritten),
		Read:    delta(first.BytesRead, last.BytesRead),
	}
}

// NetworkUsage returns the bytes sent and received per interface inside the
// retained window. Interfaces missing from either end are skipped.
func (sc *Collector) NetworkUsage() map[string]metrics.NetIO {
	samples := sc.GetSamples()
	result := make(map[string]metrics.NetIO)
	if len(samples) < 2 {
		return result
	}
	first, last := samples[0].NetIO, samples[len(samples)-1].NetIO
	for name, end := range last {
		start, ok := first[name]
		if !ok {
			continue
		}
		result[name] = metrics.NetIO{
			BytesSent:   delta(start.BytesSent, end.BytesSent),
			BytesRecv:   delta(start.BytesRecv, end.BytesRecv),
			PacketsSent: delta(start.PacketsSent, end.PacketsSent),
			PacketsRecv: delta(start.PacketsRecv, end.PacketsRecv),
			ErrorsSent:  delta(start.ErrorsSent, end.ErrorsSent),
			ErrorsRecv:  delta(start.ErrorsRecv, end.ErrorsRecv),
			DropSent:    delta(start.DropSent, end.DropSent),
			DropRecv:    delta(start.DropRecv, end.DropRecv),
		}
	}
	return result
}

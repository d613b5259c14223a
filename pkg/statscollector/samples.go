package statscollector

import "github.com/voluzi/procscope/pkg/metrics"

// AddSample records new sample.
func (sc *Collector) AddSample(s metrics.Snapshot) {
	sc.lock.Lock()
	defer sc.lock.Unlock()

	sc.samples = append(sc.samples, s)

	if sc.maxSamples > 0 && len(sc.samples) > sc.maxSamples {
		sc.samples = sc.samples[len(sc.samples)-sc.maxSamples:]
	}
}

// GetSamples returns a copy of the retained samples, oldest first.
func (sc *Collector) GetSamples() []metrics.Snapshot {
	sc.lock.RLock()
	defer sc.lock.RUnlock()

	return append([]metrics.Snapshot(nil), sc.samples...)
}

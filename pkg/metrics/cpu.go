package metrics

import "time"

// CPUSample is a cumulative CPU time reading taken at a given instant.
type CPUSample struct {
	Timestamp  time.Time
	CPUTimeSec float64
}

// CPUUsage computes the CPU usage percentage between two samples, divided
// across the given number of logical cores. A full core for the whole
// interval on a 4 core host yields 25.
func CPUUsage(prev, cur CPUSample, cores int) float64 {
	if cores <= 0 {
		return 0
	}
	elapsed := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return 0
	}
	delta := cur.CPUTimeSec - prev.CPUTimeSec
	if delta <= 0 {
		return 0
	}
	return delta / elapsed * 100 / float64(cores)
}

// UsageTracker keeps the previous CPU sample of one process. The first
// observation has no baseline and reports 0.
type UsageTracker struct {
	cores int
	last  *CPUSample
}

func NewUsageTracker(cores int) *UsageTracker {
	return &UsageTracker{cores: cores}
}

// Observe records cur as the new baseline and returns the usage since the
// previous observation.
func (u *UsageTracker) Observe(cur CPUSample) float64 {
	prev := u.last
	u.last = &cur
	if prev == nil {
		return 0
	}
	return CPUUsage(*prev, cur, u.cores)
}

package metrics

// Snapshot is the result of sampling a single process once.
type Snapshot struct {
	Memory   Memory           `json:"memory"`
	CPUTime  CPUTime          `json:"cpu_time"`
	CPUUsage float64          `json:"cpu_usage"`
	IO       IO               `json:"io"`
	NetIO    map[string]NetIO `json:"net_io"`
}

// Memory holds process memory sizes in bytes. Shared, Text and Data are only
// reported on platforms that expose them and are nil otherwise.
type Memory struct {
	RSS    uint64  `json:"rss"`
	VMS    uint64  `json:"vms"`
	Shared *uint64 `json:"shared"`
	Text   *uint64 `json:"text"`
	Data   *uint64 `json:"data"`
}

// CPUTime is the cumulative CPU time consumed since process start, in seconds.
type CPUTime struct {
	User   float64 `json:"user"`
	System float64 `json:"system"`
}

// Total returns user plus system time.
func (t CPUTime) Total() float64 {
	return t.User + t.System
}

// IO holds cumulative I/O counters. BytesWritten and BytesRead are always set,
// the remaining counters depend on the platform.
type IO struct {
	BytesWritten   uint64  `json:"bytes_written"`
	BytesRead      uint64  `json:"bytes_read"`
	DiskWritten    *uint64 `json:"disk_written"`
	DiskRead       *uint64 `json:"disk_read"`
	SyscallWritten *uint64 `json:"syscall_written"`
	SyscallRead    *uint64 `json:"syscall_read"`
}

// NetIO holds the cumulative counters of one network interface.
type NetIO struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrorsSent  uint64 `json:"errors_sent"`
	ErrorsRecv  uint64 `json:"errors_recv"`
	DropSent    uint64 `json:"drop_sent"`
	DropRecv    uint64 `json:"drop_recv"`
}

// Uint64 returns a pointer to v, for populating optional counters.
func Uint64(v uint64) *uint64 {
	return &v
}

// ValueOr returns the value behind p, or fallback when p is nil.
func ValueOr(p *uint64, fallback uint64) uint64 {
	if p == nil {
		return fallback
	}
	return *p
}

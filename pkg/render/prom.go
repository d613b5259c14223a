package render

import (
	"io"
	"path/filepath"
	"sort"

	prom "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/voluzi/procscope/pkg/metrics"
)

const (
	PrometheusFile = "metrics.prom"

	metricPrefix = "procscope_"
)

type sample struct {
	labels []*prom.LabelPair
	value  float64
}

type family struct {
	name    string
	help    string
	kind    prom.MetricType
	samples []sample
}

func (f *family) add(value float64, labels ...string) {
	pairs := make([]*prom.LabelPair, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		pairs = append(pairs, &prom.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	f.samples = append(f.samples, sample{labels: pairs, value: value})
}

func (f *family) addOptional(value *uint64, labels ...string) {
	if value != nil {
		f.add(float64(*value), labels...)
	}
}

func (f *family) toProto(constLabels []*prom.LabelPair) *prom.MetricFamily {
	mf := &prom.MetricFamily{
		Name: proto.String(metricPrefix + f.name),
		Help: proto.String(f.help),
		Type: f.kind.Enum(),
	}
	for _, s := range f.samples {
		m := &prom.Metric{Label: append(append([]*prom.LabelPair{}, constLabels...), s.labels...)}
		switch f.kind {
		case prom.MetricType_COUNTER:
			m.Counter = &prom.Counter{Value: proto.Float64(s.value)}
		default:
			m.Gauge = &prom.Gauge{Value: proto.Float64(s.value)}
		}
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

// MetricFamilies converts a snapshot into Prometheus metric families. The
// given labels are attached to every metric.
func MetricFamilies(s metrics.Snapshot, labels map[string]string) []*prom.MetricFamily {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	constLabels := make([]*prom.LabelPair, 0, len(names))
	for _, name := range names {
		constLabels = append(constLabels, &prom.LabelPair{
			Name:  proto.String(name),
			Value: proto.String(labels[name]),
		})
	}

	memory := &family{name: "memory_bytes", help: "Process memory size in bytes.", kind: prom.MetricType_GAUGE}
	memory.add(float64(s.Memory.RSS), "type", "rss")
	memory.add(float64(s.Memory.VMS), "type", "vms")
	memory.addOptional(s.Memory.Shared, "type", "shared")
	memory.addOptional(s.Memory.Text, "type", "text")
	memory.addOptional(s.Memory.Data, "type", "data")

	cpuTime := &family{name: "cpu_seconds_total", help: "Cumulative CPU time in seconds.", kind: prom.MetricType_COUNTER}
	cpuTime.add(s.CPUTime.User, "mode", "user")
	cpuTime.add(s.CPUTime.System, "mode", "system")

	cpuUsage := &family{name: "cpu_usage_percent", help: "CPU usage over the last sampling interval.", kind: prom.MetricType_GAUGE}
	cpuUsage.add(s.CPUUsage)

	ioBytes := &family{name: "io_bytes_total", help: "Cumulative I/O in bytes.", kind: prom.MetricType_COUNTER}
	ioBytes.add(float64(s.IO.BytesWritten), "direction", "written", "source", "os")
	ioBytes.add(float64(s.IO.BytesRead), "direction", "read", "source", "os")
	ioBytes.addOptional(s.IO.DiskWritten, "direction", "written", "source", "disk")
	ioBytes.addOptional(s.IO.DiskRead, "direction", "read", "source", "disk")

	ioSyscalls := &family{name: "io_syscalls_total", help: "Cumulative I/O system calls.", kind: prom.MetricType_COUNTER}
	ioSyscalls.addOptional(s.IO.SyscallWritten, "direction", "written")
	ioSyscalls.addOptional(s.IO.SyscallRead, "direction", "read")

	netBytes := &family{name: "network_bytes_total", help: "Cumulative network traffic in bytes.", kind: prom.MetricType_COUNTER}
	netPackets := &family{name: "network_packets_total", help: "Cumulative network packets.", kind: prom.MetricType_COUNTER}
	netErrors := &family{name: "network_errors_total", help: "Cumulative network errors.", kind: prom.MetricType_COUNTER}
	netDrops := &family{name: "network_drops_total", help: "Cumulative dropped packets.", kind: prom.MetricType_COUNTER}
	for _, name := range s.Interfaces() {
		n := s.NetIO[name]
		netBytes.add(float64(n.BytesSent), "interface", name, "direction", "sent")
		netBytes.add(float64(n.BytesRecv), "interface", name, "direction", "recv")
		netPackets.add(float64(n.PacketsSent), "interface", name, "direction", "sent")
		netPackets.add(float64(n.PacketsRecv), "interface", name, "direction", "recv")
		netErrors.add(float64(n.ErrorsSent), "interface", name, "direction", "sent")
		netErrors.add(float64(n.ErrorsRecv), "interface", name, "direction", "recv")
		netDrops.add(float64(n.DropSent), "interface", name, "direction", "sent")
		netDrops.add(float64(n.DropRecv), "interface", name, "direction", "recv")
	}

	var families []*prom.MetricFamily
	for _, f := range []*family{memory, cpuTime, cpuUsage, ioBytes, ioSyscalls, netBytes, netPackets, netErrors, netDrops} {
		if len(f.samples) > 0 {
			families = append(families, f.toProto(constLabels))
		}
	}
	return families
}

// WritePrometheus writes the last snapshot in the Prometheus text format.
func WritePrometheus(w io.Writer, snapshots []metrics.Snapshot, labels map[string]string) error {
	if len(snapshots) == 0 {
		return ErrNoSnapshots
	}
	for _, mf := range MetricFamilies(snapshots[len(snapshots)-1], labels) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ExportPrometheus writes metrics.prom inside dir, suitable for the node
// exporter textfile collector, and returns the file path.
func ExportPrometheus(dir string, snapshots []metrics.Snapshot, labels map[string]string) (string, error) {
	if len(snapshots) == 0 {
		return "", ErrNoSnapshots
	}
	path := filepath.Join(dir, PrometheusFile)
	if err := writeFile(path, func(w io.Writer) error {
		return WritePrometheus(w, snapshots, labels)
	}); err != nil {
		return "", err
	}
	return path, nil
}

package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluzi/procscope/pkg/metrics"
)

func testSnapshots() []metrics.Snapshot {
	return []metrics.Snapshot{
		{
			Memory:  metrics.Memory{RSS: 10 << 20, VMS: 100 << 20},
			CPUTime: metrics.CPUTime{User: 0.5, System: 0.25},
			IO:      metrics.IO{BytesWritten: 1024, BytesRead: 2048},
			NetIO:   map[string]metrics.NetIO{},
		},
		{
			Memory: metrics.Memory{
				RSS:    12 << 20,
				VMS:    100 << 20,
				Shared: metrics.Uint64(1 << 20),
				Text:   metrics.Uint64(2 << 20),
				Data:   metrics.Uint64(3 << 20),
			},
			CPUTime:  metrics.CPUTime{User: 1, System: 0.5},
			CPUUsage: 37.5,
			IO: metrics.IO{
				BytesWritten:   4096,
				BytesRead:      8192,
				DiskWritten:    metrics.Uint64(512),
				DiskRead:       metrics.Uint64(0),
				SyscallWritten: metrics.Uint64(7),
				SyscallRead:    metrics.Uint64(9),
			},
			NetIO: map[string]metrics.NetIO{
				"eth0": {BytesSent: 100, BytesRecv: 200, PacketsSent: 1, PacketsRecv: 2},
				"lo":   {BytesSent: 5, BytesRecv: 5},
			},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testSnapshots()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	first := decoded[0]
	for _, key := range []string{"memory", "cpu_time", "cpu_usage", "io", "net_io"} {
		assert.Contains(t, first, key)
	}
	memory := first["memory"].(map[string]any)
	assert.Nil(t, memory["shared"])
	assert.Contains(t, memory, "shared")
	assert.Equal(t, float64(10<<20), memory["rss"])

	io := decoded[1]["io"].(map[string]any)
	assert.Equal(t, float64(512), io["disk_written"])
	assert.Equal(t, float64(0), io["disk_read"])
	assert.Contains(t, decoded[1]["net_io"], "eth0")
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportJSON(dir, testSnapshots())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, JSONFile), path)

	var decoded []metrics.Snapshot
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, testSnapshots(), decoded)
}

func TestExportCharts(t *testing.T) {
	dir := t.TempDir()
	paths, err := ExportCharts(dir, testSnapshots(), MemoryChart, CPUTimeChart, CPUUsageChart, IOChart)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for i, name := range []string{"memory.svg", "cpu_time.svg", "cpu_usage.svg", "io.svg"} {
		assert.Equal(t, filepath.Join(dir, name), paths[i])
		data, err := os.ReadFile(paths[i])
		require.NoError(t, err)
		assert.Contains(t, string(data), "<svg")
	}
}

func TestChart_NoSnapshots(t *testing.T) {
	_, err := MemoryChart.Plot(nil)
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestChart_MissingOptionalPlotsZero(t *testing.T) {
	shared := MemoryChart.Series[2]
	require.Equal(t, "shared", shared.Label)
	assert.Equal(t, float64(0), shared.Value(testSnapshots()[0]))
	assert.Equal(t, float64(1), shared.Value(testSnapshots()[1]))
}

func TestWritePrometheus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf, testSnapshots(), map[string]string{"pid": "4242"}))

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(&buf)
	require.NoError(t, err)

	memory := families["procscope_memory_bytes"]
	require.NotNil(t, memory)
	assert.Len(t, memory.Metric, 5)
	for _, m := range memory.Metric {
		assert.Equal(t, "pid", m.Label[0].GetName())
		assert.Equal(t, "4242", m.Label[0].GetValue())
	}

	usage := families["procscope_cpu_usage_percent"]
	require.NotNil(t, usage)
	assert.Equal(t, 37.5, usage.Metric[0].GetGauge().GetValue())

	network := families["procscope_network_bytes_total"]
	require.NotNil(t, network)
	assert.Len(t, network.Metric, 4)

	assert.Len(t, families["procscope_io_bytes_total"].Metric, 4)
	assert.Len(t, families["procscope_io_syscalls_total"].Metric, 2)
}

func TestWritePrometheus_OptionalFieldsOmitted(t *testing.T) {
	families := MetricFamilies(testSnapshots()[0], nil)

	names := make(map[string]int, len(families))
	for _, mf := range families {
		names[mf.GetName()] = len(mf.Metric)
	}
	assert.Equal(t, 2, names["procscope_memory_bytes"])
	assert.NotContains(t, names, "procscope_io_syscalls_total")
	assert.NotContains(t, names, "procscope_network_bytes_total")
}

func TestExportPrometheus_NoSnapshots(t *testing.T) {
	_, err := ExportPrometheus(t.TempDir(), nil, nil)
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

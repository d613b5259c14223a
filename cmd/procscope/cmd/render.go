package cmd

import (
	"path/filepath"
	"strconv"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/procscope/internal/environ"
	"github.com/voluzi/procscope/pkg/metrics"
	"github.com/voluzi/procscope/pkg/monitor"
	"github.com/voluzi/procscope/pkg/render"
	"github.com/voluzi/procscope/pkg/statscollector"
	"github.com/voluzi/procscope/pkg/store"
	"github.com/voluzi/procscope/pkg/utils"
)

var (
	renderOutDir      string
	renderCompression string
	renderMemory      bool
	renderCPU         bool
	renderIO          bool
	renderJSON        bool
	renderProm        bool
	renderSummary     bool
	summaryWindow     int
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Renders a record log as charts, JSON or Prometheus metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderFile(args[0])
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutDir, "out-dir", "o",
		environ.GetString(environ.Key("out-dir"), "."),
		"Directory the rendered files are written to",
	)
	renderCmd.Flags().StringVar(&renderCompression, "compression",
		environ.GetString(environ.Key("compression"), string(store.DefaultCompression)),
		"Compression the record log was written with",
	)
	renderCmd.Flags().BoolVarP(&renderMemory, "memory", "m", false, "Render memory.svg")
	renderCmd.Flags().BoolVarP(&renderCPU, "cpu", "c", false, "Render cpu_time.svg and cpu_usage.svg")
	renderCmd.Flags().BoolVar(&renderIO, "io", false, "Render io.svg")
	renderCmd.Flags().BoolVarP(&renderJSON, "json", "j", false, "Convert the record log to result.json")
	renderCmd.Flags().BoolVar(&renderProm, "prom", false, "Write the last sample to metrics.prom")
	renderCmd.Flags().BoolVar(&renderSummary, "summary", false, "Log usage averages and peaks")
	renderCmd.Flags().IntVar(&summaryWindow, "summary-window",
		environ.GetInt(environ.Key("summary-window"), 0),
		"Number of most recent samples the summary covers, 0 for all",
	)
}

func renderFile(path string) error {
	compression, err := store.ParseCompression(renderCompression)
	if err != nil {
		return err
	}

	logger := log.WithField("file", path)
	snapshots, err := store.ReadAll(path, store.WithCompression(compression))
	switch {
	case errors.Is(err, store.ErrCorruptRecord):
		logger.WithFields(errorFields(err)).WithError(err).
			Warnf("record log is damaged, rendering the %d records before the damage", len(snapshots))
	case err != nil:
		return err
	}
	logger.WithField("records", len(snapshots)).Info("record log loaded")

	var charts []render.Chart
	if renderMemory {
		charts = append(charts, render.MemoryChart)
	}
	if renderCPU {
		charts = append(charts, render.CPUTimeChart, render.CPUUsageChart)
	}
	if renderIO {
		charts = append(charts, render.IOChart)
	}
	if len(charts) == 0 && !renderJSON && !renderProm && !renderSummary {
		logger.Warn("nothing to render, select at least one of --memory, --cpu, --io, --json, --prom or --summary")
		return nil
	}

	if err := utils.EnsureDir(renderOutDir); err != nil {
		return err
	}

	if renderJSON {
		out, err := render.ExportJSON(renderOutDir, snapshots)
		if err != nil {
			return err
		}
		logger.WithField("output", out).Info("json exported")
	}

	if len(charts) > 0 {
		paths, err := render.ExportCharts(renderOutDir, snapshots, charts...)
		if err != nil {
			return err
		}
		logger.WithField("output", paths).Info("charts rendered")
	}

	if renderProm {
		out, err := render.ExportPrometheus(renderOutDir, snapshots, promLabels(path))
		if err != nil {
			return err
		}
		logger.WithField("output", out).Info("prometheus metrics exported")
	}

	if renderSummary {
		logger.WithFields(summarize(snapshots, summaryWindow).Fields()).Info("usage summary")
	}
	return nil
}

func promLabels(path string) map[string]string {
	labels := map[string]string{"file": filepath.Base(path)}
	if pid, _, err := monitor.ParseFileName(path); err == nil {
		labels["pid"] = strconv.Itoa(int(pid))
	}
	return labels
}

func summarize(snapshots []metrics.Snapshot, window int) statscollector.Summary {
	collector := statscollector.NewCollector(window)
	for _, s := range snapshots {
		collector.AddSample(s)
	}
	return collector.Summary()
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/c2h5oh/datasize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/procscope/internal/config"
	"github.com/voluzi/procscope/internal/environ"
	"github.com/voluzi/procscope/pkg/monitor"
	"github.com/voluzi/procscope/pkg/shutdown"
	"github.com/voluzi/procscope/pkg/store"
	"github.com/voluzi/procscope/pkg/utils"
)

var (
	recordNames       []string
	frequency         time.Duration
	shutdownTimeout   time.Duration
	recordOutDir      string
	recordCompression string
	bufferSize        string
	configFile        string
)

var recordCmd = &cobra.Command{
	Use:   "record [pid...]",
	Short: "Records resource usage of running processes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := recordConfig(cmd, args)
		if err != nil {
			return err
		}
		if len(cfg.Pids) == 0 && len(cfg.Names) == 0 {
			log.Warn("no process that needs to record")
			return nil
		}
		return record(cfg)
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringSliceVar(&recordNames, "name",
		environ.GetStringSlice(environ.Key("name"), nil),
		"Record the first process with this exact name. Can be repeated.",
	)
	recordCmd.Flags().DurationVarP(&frequency, "frequency", "f",
		environ.GetDuration(environ.Key("frequency"), monitor.DefaultFrequency),
		"Sampling frequency",
	)
	recordCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout",
		environ.GetDuration(environ.Key("shutdown-timeout"), config.DefaultShutdownTimeout),
		"Maximum time to wait for recorders to finish on shutdown",
	)
	recordCmd.Flags().StringVarP(&recordOutDir, "out-dir", "o",
		environ.GetString(environ.Key("out-dir"), monitor.DefaultOutDir),
		"Directory the record logs are written to",
	)
	recordCmd.Flags().StringVar(&recordCompression, "compression",
		environ.GetString(environ.Key("compression"), string(store.DefaultCompression)),
		"Record log compression. One of none, snappy, lz4, zstd, gzip. "+
			"Logs of an interrupted run read back cleanly with none, snappy and lz4 only; "+
			"zstd and gzip logs keep every flushed record but are reported as damaged.",
	)
	recordCmd.Flags().StringVar(&bufferSize, "buffer-size",
		environ.GetString(environ.Key("buffer-size"), store.DefaultBufferSize),
		"Size of the record log write buffer",
	)
	recordCmd.Flags().StringVar(&configFile, "config",
		environ.GetString(environ.Key("config"), ""),
		"YAML record profile. Flags set explicitly take precedence.",
	)
}

// recordConfig merges the optional profile with the command line.
func recordConfig(cmd *cobra.Command, args []string) (*config.Record, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadRecord(configFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	override := func(name string) bool {
		return configFile == "" || flags.Changed(name)
	}
	if override("name") {
		cfg.Names = recordNames
	}
	if override("frequency") {
		cfg.Frequency = config.Duration(frequency)
	}
	if override("shutdown-timeout") {
		cfg.ShutdownTimeout = config.Duration(shutdownTimeout)
	}
	if override("out-dir") {
		cfg.OutDir = recordOutDir
	}
	if override("compression") {
		cfg.Compression = recordCompression
	}
	if override("buffer-size") {
		cfg.BufferSize = bufferSize
	}

	if len(args) > 0 {
		cfg.Pids = cfg.Pids[:0]
		for _, arg := range args {
			pid, err := strconv.ParseInt(arg, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid pid %q: %w", arg, err)
			}
			cfg.Pids = append(cfg.Pids, int32(pid))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func record(cfg *config.Record) error {
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(cfg.OutDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator := shutdown.New()
	opts := []monitor.Option{
		monitor.WithOutDir(cfg.OutDir),
		monitor.WithStoreOptions(storeOpts...),
	}

	var monitors []*monitor.Monitor
	for _, pid := range cfg.Pids {
		m, err := monitor.FromPid(ctx, pid, coordinator.Register(), opts...)
		if err != nil {
			log.WithFields(errorFields(err)).WithField("pid", pid).WithError(err).Error("cannot record process")
			continue
		}
		monitors = append(monitors, m)
	}
	for _, name := range cfg.Names {
		m, err := monitor.FromName(ctx, name, coordinator.Register(), opts...)
		if err != nil {
			log.WithFields(errorFields(err)).WithField("name", name).WithError(err).Error("cannot record process")
			continue
		}
		monitors = append(monitors, m)
	}
	if len(monitors) == 0 {
		return errors.New("none of the requested processes can be recorded")
	}

	for _, m := range monitors {
		log.WithFields(log.Fields{
			"pid":  m.Pid(),
			"file": m.Path(),
		}).Info("recording process")

		go func(m *monitor.Monitor) {
			if err := m.Run(ctx, time.Duration(cfg.Frequency)); err != nil {
				log.WithFields(errorFields(err)).WithField("pid", m.Pid()).WithError(err).Error("recording stopped")
			}
		}(m)
	}

	result := coordinator.RunUntilShutdown(ctx, time.Duration(cfg.ShutdownTimeout))

	paths := make([]string, 0, len(monitors))
	for _, m := range monitors {
		paths = append(paths, m.Path())
	}
	size, err := utils.FilesSize(paths...)
	if err != nil {
		log.WithError(err).Warn("cannot measure record logs")
	}
	log.WithFields(log.Fields{
		"interrupted": result.External,
		"drain":       result.Drain,
		"stragglers":  result.Stragglers,
		"size":        datasize.ByteSize(size).HumanReadable(),
	}).Info("recording finished")
	return nil
}

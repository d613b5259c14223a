package cmd

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/procscope/internal/environ"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "procscope",
	Short: "Records and renders process resource usage",
	Long: `procscope samples memory, CPU, I/O and network counters of running processes
into compact record logs, and renders those logs as charts, JSON or Prometheus metrics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(logLvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level",
		environ.GetString(environ.Key("log-level"), "info"),
		"Log level. One of debug, info, warn, error, fatal, panic.",
	)
}

// errorFields exposes the key/value details attached to err as log fields.
func errorFields(err error) log.Fields {
	fields := log.Fields{}
	details := errors.GetDetails(err)
	for i := 0; i+1 < len(details); i += 2 {
		fields[fmt.Sprint(details[i])] = details[i+1]
	}
	return fields
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

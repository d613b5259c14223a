package environ

import (
	"os"
	"strconv"
	"strings"
	"time"

	"k8s.io/kube-openapi/pkg/validation/strfmt"
)

// Prefix is prepended to every variable looked up through Key.
const Prefix = "PROCSCOPE_"

// Key returns the environment variable backing a flag, for example
// "shutdown-timeout" becomes PROCSCOPE_SHUTDOWN_TIMEOUT.
func Key(flag string) string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

// GetStringSlice splits a comma separated value, dropping empty items.
func GetStringSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}

	return fallback
}

func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}

	return fallback
}

// GetDuration accepts Go durations as well as day and week units ("1d").
func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if t, err := strfmt.ParseDuration(value); err == nil {
			return t
		}
	}
	return fallback
}

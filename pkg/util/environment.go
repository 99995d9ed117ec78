package util

import (
	"os"
	"strings"
	"time"

	"github.com/senseyeio/duration"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// GetEnvironmentDuration reads a Go duration (eg. 30s, 5m) or an ISO 8601 duration (eg. PT24H, P1D)
// from the environment, falling back on the default when unset or unparsable
func GetEnvironmentDuration(name string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}

	parsed, err := ParseDuration(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}

	return parsed
}

func ParseDuration(value string) (time.Duration, error) {
	if strings.HasPrefix(value, "P") {
		isoDuration, err := duration.ParseISO8601(value)
		if err != nil {
			return 0, err
		}

		reference := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		return isoDuration.Shift(reference).Sub(reference), nil
	}

	return time.ParseDuration(value)
}

package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClockTime parses HH:MM or HH:MM:SS into a duration since midnight. Hours above 23 are allowed
// as GTFS uses them for trips running past midnight.
func ParseClockTime(clock string) (time.Duration, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", clock)
	}

	var values [3]int
	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return 0, fmt.Errorf("invalid clock time %q", clock)
		}
		values[i] = value
	}

	if values[1] > 59 || values[2] > 59 {
		return 0, fmt.Errorf("invalid clock time %q", clock)
	}

	return time.Duration(values[0])*time.Hour + time.Duration(values[1])*time.Minute + time.Duration(values[2])*time.Second, nil
}

func FormatClockTime(sinceMidnight time.Duration) string {
	totalSeconds := int(sinceMidnight.Seconds())

	return fmt.Sprintf("%02d:%02d:%02d", totalSeconds/3600, (totalSeconds%3600)/60, totalSeconds%60)
}

// AddMinutesToClockTime shifts a HH:MM:SS clock time forward, keeping hours past 24 like GTFS does
func AddMinutesToClockTime(clock string, minutes int) (string, error) {
	sinceMidnight, err := ParseClockTime(clock)
	if err != nil {
		return "", err
	}

	return FormatClockTime(sinceMidnight + time.Duration(minutes)*time.Minute), nil
}

package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	iso8601arse "github.com/senseyeio/duration"
)

// ParseTimeout accepts plain seconds ("120"), Go durations ("2m") and
// ISO 8601 durations ("PT2M").
func ParseTimeout(value string) (time.Duration, error) {
	w, err := parseDuration(value)
	if err != nil {
		return 0, err
	}
	if w <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", value)
	}
	return w, nil
}

const maxSeconds = math.MaxInt64 / int64(time.Second)

func parseDuration(duration string) (time.Duration, error) {

	duration = strings.TrimSpace(duration)

	if IsAllDigits(duration) {
		seconds, err := strconv.ParseInt(duration, 10, 64)
		if err != nil || seconds > maxSeconds {
			return 0, fmt.Errorf("duration out of range: %s seconds", duration)
		}
		return time.Duration(seconds) * time.Second, nil
	} else if parsedDuration, err := time.ParseDuration(duration); err == nil {
		return parsedDuration, nil
	} else if isoDuration, err := iso8601arse.ParseISO8601(duration); err == nil {
		referenceTime := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		shiftedTime := isoDuration.Shift(referenceTime)
		return shiftedTime.Sub(referenceTime), nil
	}

	return 0, fmt.Errorf("invalid duration format: %s. Expect seconds, ISO 8601 or duration string", duration)
}

// FormatDuration formats a duration for progress output (1m20s style, whole seconds)
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	return d.Truncate(time.Second).String()
}

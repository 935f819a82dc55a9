package workout

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	colonTimeRegex = regexp.MustCompile(`(\d+):(\d+)`)
	// matches at the very start only, possibly empty
	unitTimeRegex = regexp.MustCompile(`^(?:(\d+)m\s*)?(?:(\d+)s?)?`)
)

// CalculateTotalDuration sums the durations (seconds) of all entries.
func CalculateTotalDuration(exercises []ComposedExercise) int {
	total := 0
	for _, e := range exercises {
		total += e.Duration
	}
	return total
}

// FormatDuration renders seconds as "1m 5s", or "59s" under a minute.
func FormatDuration(seconds int) string {
	minutes := seconds / 60
	remaining := seconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, remaining)
	}
	return fmt.Sprintf("%ds", remaining)
}

// ParseTimeInput reads "1:30", "1m 30s", "90s" or "90" into seconds. The
// colon form wins when present anywhere in the input. Unparsable parts count
// as zero.
func ParseTimeInput(input string) int {
	if m := colonTimeRegex.FindStringSubmatch(input); m != nil {
		return atoiOrZero(m[1])*60 + atoiOrZero(m[2])
	}

	m := unitTimeRegex.FindStringSubmatch(input)
	if m == nil {
		return 0
	}
	return atoiOrZero(m[1])*60 + atoiOrZero(m[2])
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

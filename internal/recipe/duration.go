package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationUnit = regexp.MustCompile(`(\d+)([dhms])`)

// ParseDuration parses standard Go durations plus whole-day units.
// Examples: "90s", "5m", "1h30m", "2d", "1d12h".
func ParseDuration(s string) (time.Duration, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return 0, fmt.Errorf("duration is empty")
	}

	if d, err := time.ParseDuration(input); err == nil {
		return d, nil
	}

	matches := durationUnit.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration: %s", input)
	}

	matchedLen := 0
	var total time.Duration
	for _, m := range matches {
		matchedLen += len(m[0])
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", input)
		}
		switch m[2] {
		case "d":
			total += 24 * time.Hour * time.Duration(value)
		case "h":
			total += time.Hour * time.Duration(value)
		case "m":
			total += time.Minute * time.Duration(value)
		case "s":
			total += time.Second * time.Duration(value)
		}
	}

	// Reject inputs with unmatched residue, e.g. "1d junk".
	if matchedLen != len(input) {
		return 0, fmt.Errorf("invalid duration: %s", input)
	}
	return total, nil
}

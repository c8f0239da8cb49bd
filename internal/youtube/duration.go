package youtube

import (
	"math"
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration converts an ISO-8601 PT#H#M#S token to seconds. Missing
// parts count as zero; anything that does not start with PT, or that exceeds
// math.MaxInt32 seconds, yields 0.
func ParseDuration(token string) int {
	m := durationPattern.FindStringSubmatch(token)
	if m == nil {
		return 0
	}

	total := 0
	for i, unit := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > (math.MaxInt32-total)/unit {
			return 0
		}
		total += n * unit
	}
	return total
}

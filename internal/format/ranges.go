package format

import (
	"strconv"
	"strings"
)

// lineRange represents a range of consecutive line numbers.
type lineRange struct {
	start int
	end   int
}

// groupIntoRanges groups consecutive line numbers into ranges.
// Lines must be sorted in ascending order.
func groupIntoRanges(lines []int) []lineRange {
	if len(lines) == 0 {
		return nil
	}

	var ranges []lineRange
	current := lineRange{start: lines[0], end: lines[0]}
	for _, line := range lines[1:] {
		if line == current.end+1 {
			current.end = line
			continue
		}
		ranges = append(ranges, current)
		current = lineRange{start: line, end: line}
	}
	return append(ranges, current)
}

// formatLineRanges renders lines as "1, 3-5, 7".
func formatLineRanges(lines []int) string {
	ranges := groupIntoRanges(lines)
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.start == r.end {
			parts = append(parts, strconv.Itoa(r.start))
		} else {
			parts = append(parts, strconv.Itoa(r.start)+"-"+strconv.Itoa(r.end))
		}
	}
	return strings.Join(parts, ", ")
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(covered) / float64(total) * 100
}

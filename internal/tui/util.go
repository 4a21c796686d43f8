package tui

import "sort"

// sortedStatusCodes returns counts' keys in ascending order, so bar charts
// and summary tables render deterministically across runs.
func sortedStatusCodes(counts map[int]int) []int {
	codes := make([]int, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

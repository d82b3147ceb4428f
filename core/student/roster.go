package student

import (
	"sort"
	"strconv"
	"strings"
)

// SortRoster orders students by roll number, the way a class register reads.
//
// Students must come in arrival order (created_at, id). Rows without a roll number go last.
// Two integer roll numbers compare numerically and sort before non-numeric ones, which
// compare case-insensitively. Ties keep arrival order.
func SortRoster(students []Student) {
	sort.SliceStable(students, func(i, j int) bool {
		return rollNoLess(students[i], students[j])
	})
}

func rollNoLess(a, b Student) bool {
	ra, rb := strings.TrimSpace(a.RollNo.String), strings.TrimSpace(b.RollNo.String)
	hasA, hasB := a.RollNo.Valid && ra != "", b.RollNo.Valid && rb != ""
	if !hasA || !hasB {
		return hasA && !hasB
	}

	na, errA := strconv.ParseInt(ra, 10, 64)
	nb, errB := strconv.ParseInt(rb, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return strings.ToLower(ra) < strings.ToLower(rb)
}

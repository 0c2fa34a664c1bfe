package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// parseSelection turns "1,3-5", "all" or "none" into zero-based row indexes
// for a table of n rows. Indexes are returned sorted without duplicates.
func parseSelection(expr string, n int) ([]int, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	switch expr {
	case "all", "*":
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	case "none", "-":
		return []int{}, nil
	case "":
		return nil, fmt.Errorf("empty selection")
	}

	var picked []int
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > n || lo > hi {
			return nil, fmt.Errorf("selection %q is outside 1-%d", part, n)
		}
		for i := lo; i <= hi; i++ {
			picked = append(picked, i-1)
		}
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("empty selection")
	}
	slices.Sort(picked)
	return slices.Compact(picked), nil
}

func parseRange(part string) (int, int, error) {
	from, to, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid row number %q", part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid row range %q", part)
	}
	return lo, hi, nil
}

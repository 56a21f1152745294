// Package utils holds small helpers shared by handlers and jobs.
package utils

import "strings"

// ParseSymbols splits a comma-separated list of tickers, trims and uppercases
// each one and drops empties and duplicates while keeping the first-seen order.
// Returns nil for empty/whitespace-only input.
func ParseSymbols(s string) []string {
	return NormalizeSymbols(strings.Split(s, ","))
}

// NormalizeSymbols trims, uppercases and de-duplicates tickers
func NormalizeSymbols(raw []string) []string {
	var result []string
	seen := make(map[string]bool, len(raw))
	for _, v := range raw {
		sym := strings.ToUpper(strings.TrimSpace(v))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		result = append(result, sym)
	}
	return result
}

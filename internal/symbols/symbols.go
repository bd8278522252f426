// Package symbols decides which holdings a run analyzes.
package symbols

import (
	"strings"

	"holdingscope/pkg/model"
)

// Normalize upper-cases the given symbols, splitting comma-separated lists and
// dropping blanks and repeats while keeping first-seen order.
func Normalize(args []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			sym := strings.ToUpper(strings.TrimSpace(part))
			if sym == "" || seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

// Select returns explicit unchanged when it is non-empty. Otherwise it
// returns the symbols of the first limit positions in discovery order.
func Select(explicit []string, positions []model.Position, limit int) []string {
	if len(explicit) > 0 {
		return explicit
	}
	limit = min(max(limit, 0), len(positions))
	out := make([]string, 0, limit)
	for _, p := range positions[:limit] {
		out = append(out, p.Symbol)
	}
	return out
}

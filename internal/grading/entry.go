package grading

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ScoreEntry is one user-entered component score. Value holds the raw text as
// typed; it is parsed with ParseScore on every recompute.
type ScoreEntry struct {
	Course        string  `json:"course"`
	Title         string  `json:"title"`
	WeightPercent float64 `json:"weight_percent"`
	Value         string  `json:"value"`
}

// HasValue reports whether anything was entered for the component.
func (e ScoreEntry) HasValue() bool {
	return e.Value != ""
}

// Weighted returns the entry's contribution to its course result.
func (e ScoreEntry) Weighted() float64 {
	return ParseScore(e.Value) * (e.WeightPercent / 100)
}

// ParseScore reads a leading integer the permissive way: surrounding text is
// ignored after the digits ("72.5" is 72, "80%" is 80) and input without a
// leading integer yields NaN.
func ParseScore(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// only reachable on overflow, where ParseFloat already returns ±Inf
		v = math.Inf(1)
	}
	if neg {
		return -v
	}
	return v
}

// Upsert returns entries with e applied: the existing entry for the same
// (course, title) pair has its value replaced in place, otherwise e is appended.
// The input slice is not modified.
func Upsert(entries []ScoreEntry, e ScoreEntry) []ScoreEntry {
	out := make([]ScoreEntry, len(entries), len(entries)+1)
	copy(out, entries)
	for i := range out {
		if out[i].Course == e.Course && out[i].Title == e.Title {
			out[i].Value = e.Value
			return out
		}
	}
	return append(out, e)
}

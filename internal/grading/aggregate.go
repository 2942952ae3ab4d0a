package grading

import (
	"cmp"
	"slices"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
)

// Credit budgets for the best/worst split. They add up to catalog.ProgrammeCredits.
const (
	BestCredits  = 90
	WorstCredits = 30
)

// Group names which sub-average a course counted towards.
type Group string

const (
	GroupBest  Group = "best90"
	GroupWorst Group = "worst30"
)

// CourseResult is the weighted score of one course.
type CourseResult struct {
	Course  string  `json:"course"`
	Result  float64 `json:"result"`
	Credits int     `json:"credits"`
	Group   Group   `json:"group,omitempty"`
}

// Results is the complete output of one recompute.
type Results struct {
	Overall float64
	Best90  float64
	Worst30 float64

	// Courses holds every scored course, best first, tagged with its group.
	Courses []CourseResult
}

// CourseResult returns the result for code, if the course has been scored.
func (r Results) CourseResult(code string) (CourseResult, bool) {
	for _, cr := range r.Courses {
		if cr.Course == code {
			return cr, true
		}
	}
	return CourseResult{}, false
}

// Compute derives the overall, best 90 and worst 30 credit averages from entries.
func Compute(entries []ScoreEntry, cat *catalog.Catalog) Results {
	results := CourseResults(entries, cat)
	sorted := SortByResult(results)
	best, worst := Partition(sorted, BestCredits)

	courses := make([]CourseResult, 0, len(sorted))
	for _, cr := range best {
		cr.Group = GroupBest
		courses = append(courses, cr)
	}
	for _, cr := range worst {
		cr.Group = GroupWorst
		courses = append(courses, cr)
	}

	return Results{
		Overall: WeightedAverage(results, catalog.ProgrammeCredits),
		Best90:  WeightedAverage(best, BestCredits),
		Worst30: WeightedAverage(worst, WorstCredits),
		Courses: courses,
	}
}

// CourseResults sums the weighted component scores per course. Courses appear
// in the order their first entry was made; entries without a value are skipped.
func CourseResults(entries []ScoreEntry, cat *catalog.Catalog) []CourseResult {
	var out []CourseResult
	index := make(map[string]int)
	for _, e := range entries {
		if !e.HasValue() {
			continue
		}
		i, ok := index[e.Course]
		if !ok {
			i = len(out)
			index[e.Course] = i
			out = append(out, CourseResult{Course: e.Course, Credits: cat.Credits(e.Course)})
		}
		out[i].Result += e.Weighted()
	}
	return out
}

// WeightedAverage returns sum(result * credits / denominator) over results.
func WeightedAverage(results []CourseResult, denominator int) float64 {
	var total float64
	for _, r := range results {
		total += r.Result * float64(r.Credits) / float64(denominator)
	}
	return total
}

// SortByResult returns a copy of results ordered best first. Equal results keep
// their relative order; NaN results sort last.
func SortByResult(results []CourseResult) []CourseResult {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b CourseResult) int {
		return cmp.Compare(b.Result, a.Result)
	})
	return sorted
}

// Partition splits sorted results at the first course reached once the credits
// already taken are at or above budget. The check happens before a course's
// own credits are added, so the course that crosses the budget still counts
// as best.
func Partition(sorted []CourseResult, budget int) (best, worst []CourseResult) {
	taken := 0
	split := len(sorted)
	for i, r := range sorted {
		if taken >= budget {
			split = i
			break
		}
		taken += r.Credits
	}
	return sorted[:split:split], sorted[split:]
}

package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/grading"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ResultsResponse carries full-precision figures (null when not a number)
// next to their display strings.
type ResultsResponse struct {
	Overall *float64               `json:"overall"`
	Best90  *float64               `json:"best90"`
	Worst30 *float64               `json:"worst30"`
	Courses []CourseResultResponse `json:"courses"`
	Display DisplayResponse        `json:"display"`
}

type CourseResultResponse struct {
	Course  string   `json:"course"`
	Result  *float64 `json:"result"`
	Credits int      `json:"credits"`
	Group   string   `json:"group"`
}

type DisplayResponse struct {
	Overall string `json:"overall"`
	Best90  string `json:"best90"`
	Worst30 string `json:"worst30"`
	// Courses maps every catalog course to the text shown beside it; blank
	// when the course has no displayable result.
	Courses map[string]string `json:"courses"`
}

func newResultsResponse(cat *catalog.Catalog, res grading.Results) ResultsResponse {
	resp := ResultsResponse{
		Overall: finite(res.Overall),
		Best90:  finite(res.Best90),
		Worst30: finite(res.Worst30),
		Courses: make([]CourseResultResponse, 0, len(res.Courses)),
		Display: DisplayResponse{
			Overall: grading.FormatFigure(res.Overall),
			Best90:  grading.FormatFigure(res.Best90),
			Worst30: grading.FormatFigure(res.Worst30),
			Courses: make(map[string]string),
		},
	}
	for _, cr := range res.Courses {
		resp.Courses = append(resp.Courses, CourseResultResponse{
			Course:  cr.Course,
			Result:  finite(cr.Result),
			Credits: cr.Credits,
			Group:   string(cr.Group),
		})
	}
	for _, course := range cat.Courses() {
		cr, ok := res.CourseResult(course.Code)
		resp.Display.Courses[course.Code] = grading.FormatCourseResult(cr, ok)
	}
	return resp
}

// finite returns nil for NaN and ±Inf, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

package catalog

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/MikeSquared-Agency/gradecalc/internal/config"
)

// ProgrammeCredits is the credit total every catalog must add up to.
const ProgrammeCredits = 120

// ErrUnknownComponent is returned when a (course, title) pair is not in the catalog.
var ErrUnknownComponent = errors.New("unknown course component")

// Component is one graded sub-assessment of a course.
type Component struct {
	Title         string  `json:"title"`
	WeightPercent float64 `json:"weight_percent"`
}

// Course is one unit of the programme with its credit value and components.
type Course struct {
	Code       string      `json:"code"`
	Name       string      `json:"name"`
	Credits    int         `json:"credits"`
	Components []Component `json:"components"`
}

// WeightSum returns the total of the course's component weights.
func (c Course) WeightSum() float64 {
	var sum float64
	for _, comp := range c.Components {
		sum += comp.WeightPercent
	}
	return sum
}

// Field is a single editable input: one component of one course.
type Field struct {
	Course    Course
	Component Component
}

// Catalog is the fixed, ordered list of courses for the programme.
type Catalog struct {
	courses []Course
	byCode  map[string]int
}

// New builds a catalog and validates it.
func New(courses []Course) (*Catalog, error) {
	c := &Catalog{
		courses: make([]Course, len(courses)),
		byCode:  make(map[string]int, len(courses)),
	}
	copy(c.courses, courses)
	for i, course := range c.courses {
		if _, dup := c.byCode[course.Code]; dup {
			return nil, fmt.Errorf("duplicate course code %q", course.Code)
		}
		c.byCode[course.Code] = i
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the UEL 2021 final year catalog.
func Default() *Catalog {
	c, err := New([]Course{
		{Code: "CN6103", Name: "Project", Credits: 45, Components: []Component{
			{Title: "Supporting Project Material (25%)", WeightPercent: 25},
			{Title: "Project Report (10,000 Words) (75%)", WeightPercent: 75},
		}},
		{Code: "CN6107", Name: "Computer and Network Security", Credits: 15, Components: []Component{
			{Title: "Component 1 2500-3000 Words (100%)", WeightPercent: 100},
		}},
		{Code: "CN6120", Name: "Formal Methods", Credits: 15, Components: []Component{
			{Title: "Individual Formal Specification Modelling And Testing Task (3000 Words) (100%)", WeightPercent: 100},
		}},
		{Code: "CN6121", Name: "Artificial Intelligence", Credits: 15, Components: []Component{
			{Title: "Coursework (100%)", WeightPercent: 100},
		}},
		{Code: "CN6204", Name: "Distributed Systems", Credits: 15, Components: []Component{
			{Title: "Group Based Project (1500 Words Each) (50%)", WeightPercent: 50},
			{Title: "Examination (60 Minutes) (50%)", WeightPercent: 50},
		}},
		{Code: "CN6211", Name: "Mobile Application Development", Credits: 15, Components: []Component{
			{Title: "Group Development Task (1500 Words) (100%)", WeightPercent: 100},
		}},
	})
	if err != nil {
		panic("catalog: default catalog invalid: " + err.Error())
	}
	return c
}

// Courses returns the courses in display order.
func (c *Catalog) Courses() []Course {
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Course looks up a course by code.
func (c *Catalog) Course(code string) (Course, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Course{}, false
	}
	return c.courses[i], true
}

// Credits returns the credit value of a course, or 0 if the code is unknown.
func (c *Catalog) Credits(code string) int {
	course, ok := c.Course(code)
	if !ok {
		return 0
	}
	return course.Credits
}

// TotalCredits returns the sum of all course credits.
func (c *Catalog) TotalCredits() int {
	total := 0
	for _, course := range c.courses {
		total += course.Credits
	}
	return total
}

// Component resolves a (course, title) pair to its component definition.
func (c *Catalog) Component(code, title string) (Component, error) {
	course, ok := c.Course(code)
	if !ok {
		return Component{}, fmt.Errorf("%w: course %q", ErrUnknownComponent, code)
	}
	for _, comp := range course.Components {
		if comp.Title == title {
			return comp, nil
		}
	}
	return Component{}, fmt.Errorf("%w: %s %q", ErrUnknownComponent, code, title)
}

// Fields flattens the catalog into editable inputs, course by course.
func (c *Catalog) Fields() []Field {
	var fields []Field
	for _, course := range c.courses {
		for _, comp := range course.Components {
			fields = append(fields, Field{Course: course, Component: comp})
		}
	}
	return fields
}

// Validate checks credits are positive and add up to ProgrammeCredits, and that
// every course's component weights are in (0, 100] and sum to 100 (±0.001).
func (c *Catalog) Validate() error {
	if len(c.courses) == 0 {
		return errors.New("catalog has no courses")
	}
	for _, course := range c.courses {
		if course.Code == "" {
			return errors.New("course with empty code")
		}
		if course.Credits <= 0 {
			return fmt.Errorf("course %s: credits must be positive, got %d", course.Code, course.Credits)
		}
		if len(course.Components) == 0 {
			return fmt.Errorf("course %s: no components", course.Code)
		}
		seen := make(map[string]bool, len(course.Components))
		for _, comp := range course.Components {
			if seen[comp.Title] {
				return fmt.Errorf("course %s: duplicate component %q", course.Code, comp.Title)
			}
			seen[comp.Title] = true
			if comp.WeightPercent <= 0 || comp.WeightPercent > 100 {
				return fmt.Errorf("course %s: component %q weight %.2f out of range", course.Code, comp.Title, comp.WeightPercent)
			}
		}
		if math.Abs(course.WeightSum()-100) > 0.001 {
			return fmt.Errorf("course %s: component weights sum to %.4f, must sum to 100", course.Code, course.WeightSum())
		}
	}
	if total := c.TotalCredits(); total != ProgrammeCredits {
		return fmt.Errorf("catalog credits sum to %d, must sum to %d", total, ProgrammeCredits)
	}
	return nil
}

// Live holds the active catalog and allows it to be swapped on reload.
type Live struct {
	p atomic.Pointer[Catalog]
}

// NewLive returns a Live holding c.
func NewLive(c *Catalog) *Live {
	l := &Live{}
	l.p.Store(c)
	return l
}

// Load returns the active catalog.
func (l *Live) Load() *Catalog { return l.p.Load() }

// Store replaces the active catalog.
func (l *Live) Store(c *Catalog) { l.p.Store(c) }

// FromConfig builds the catalog described in the config file, falling back to
// Default when the file does not define one.
func FromConfig(courses []config.CourseConfig) (*Catalog, error) {
	if len(courses) == 0 {
		return Default(), nil
	}
	out := make([]Course, 0, len(courses))
	for _, cc := range courses {
		course := Course{Code: cc.Code, Name: cc.Name, Credits: cc.Credits}
		for _, comp := range cc.Components {
			course.Components = append(course.Components, Component{Title: comp.Title, WeightPercent: comp.WeightPercent})
		}
		out = append(out, course)
	}
	c, err := New(out)
	if err != nil {
		return nil, fmt.Errorf("catalog from config: %w", err)
	}
	return c, nil
}

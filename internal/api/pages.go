package api

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/grading"
	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const pageTitle = "UEL 2021 Final Year Results Calculator"

type PageHandler struct {
	calc *calculator
}

func NewPageHandler(calc *calculator) *PageHandler {
	return &PageHandler{calc: calc}
}

type pageData struct {
	Title     string
	SessionID string
	Courses   []pageCourse
	Overall   string
	Best90    string
	Worst30   string
}

type pageCourse struct {
	Code   string
	Name   string
	Result string
	Fields []pageField
}

type pageField struct {
	Name   string
	Course string
	Title  string
	Value  string
}

// Index starts a fresh session, so a reload always shows an empty form.
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	id, err := h.calc.store.Create(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.render(w, id, nil)
}

// Submit applies a whole-form post for clients without scripts. Only fields
// whose value changed are written, so untouched blanks never create entries.
// POST /sessions/{id}
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	entries, err := h.calc.store.Entries(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for _, f := range h.calc.catalog.Load().Fields() {
		name := fieldName(f.Course.Code, f.Component.Title)
		if _, posted := r.PostForm[name]; !posted {
			continue
		}
		value := r.PostForm.Get(name)
		if value == entryValue(entries, f.Course.Code, f.Component.Title) {
			continue
		}
		entries, err = h.calc.edit(r.Context(), id, f.Course.Code, f.Component.Title, value)
		if err != nil {
			writePageError(w, err)
			return
		}
	}

	h.render(w, id, entries)
}

func (h *PageHandler) render(w http.ResponseWriter, id uuid.UUID, entries []grading.ScoreEntry) {
	cat, entries, res := h.calc.compute(entries, surfacePage, id.String())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, buildPage(cat, res, id, entries)); err != nil {
		h.calc.logger.Error("failed to render page", "error", err)
	}
}

func buildPage(cat *catalog.Catalog, res grading.Results, id uuid.UUID, entries []grading.ScoreEntry) pageData {
	data := pageData{
		Title:     pageTitle,
		SessionID: id.String(),
		Overall:   grading.FormatFigure(res.Overall),
		Best90:    grading.FormatFigure(res.Best90),
		Worst30:   grading.FormatFigure(res.Worst30),
	}

	for _, course := range cat.Courses() {
		cr, ok := res.CourseResult(course.Code)
		pc := pageCourse{
			Code:   course.Code,
			Name:   course.Name,
			Result: grading.FormatCourseResult(cr, ok),
		}
		for _, comp := range course.Components {
			pc.Fields = append(pc.Fields, pageField{
				Name:   fieldName(course.Code, comp.Title),
				Course: course.Code,
				Title:  comp.Title,
				Value:  entryValue(entries, course.Code, comp.Title),
			})
		}
		data.Courses = append(data.Courses, pc)
	}
	return data
}

// fieldName keys a form input by course and component, so a post made
// against an older catalog never lands on a different component.
func fieldName(course, title string) string {
	return course + "/" + title
}

func writePageError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, catalog.ErrUnknownComponent) {
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func entryValue(entries []grading.ScoreEntry, course, title string) string {
	for _, e := range entries {
		if e.Course == course && e.Title == title {
			return e.Value
		}
	}
	return ""
}

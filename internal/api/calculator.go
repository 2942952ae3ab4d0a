package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/events"
	"github.com/MikeSquared-Agency/gradecalc/internal/grading"
	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

// Recompute surfaces, used as the metrics label and in events.
const (
	surfacePage    = "page"
	surfaceAPI     = "api"
	surfaceCompute = "compute"
)

// calculator is the edit/recompute path shared by the HTML and JSON handlers.
type calculator struct {
	store   session.Store
	catalog *catalog.Live
	events  *events.Publisher
	metrics *Metrics
	logger  *slog.Logger
}

func newCalculator(s session.Store, cat *catalog.Live, pub *events.Publisher, m *Metrics, logger *slog.Logger) *calculator {
	return &calculator{store: s, catalog: cat, events: pub, metrics: m, logger: logger}
}

// entry resolves a (course, title) pair against the active catalog.
func (c *calculator) entry(course, title, value string) (grading.ScoreEntry, error) {
	comp, err := c.catalog.Load().Component(course, title)
	if err != nil {
		return grading.ScoreEntry{}, err
	}
	return grading.ScoreEntry{
		Course:        course,
		Title:         title,
		WeightPercent: comp.WeightPercent,
		Value:         value,
	}, nil
}

// edit commits one field value to a session and returns the updated entries.
func (c *calculator) edit(ctx context.Context, id uuid.UUID, course, title, value string) ([]grading.ScoreEntry, error) {
	e, err := c.entry(course, title, value)
	if err != nil {
		return nil, err
	}
	entries, err := c.store.SetEntry(ctx, id, e)
	if err != nil {
		return nil, err
	}

	c.metrics.EntryUpdates.WithLabelValues(course).Inc()
	c.events.Publish(events.SubjectEntryUpdated(id.String()), events.EntryUpdatedEvent{
		SessionID: id.String(),
		Course:    course,
		Title:     title,
		Value:     value,
		Timestamp: time.Now().UTC(),
	})
	return entries, nil
}

// compute runs the aggregation against the active catalog and returns the
// entries it used. sessionID may be empty for stateless calls.
func (c *calculator) compute(entries []grading.ScoreEntry, surface, sessionID string) (*catalog.Catalog, []grading.ScoreEntry, grading.Results) {
	cat := c.catalog.Load()
	entries = resolve(cat, entries)
	res := grading.Compute(entries, cat)

	c.metrics.Recomputations.WithLabelValues(surface).Inc()

	subject := events.SubjectStatelessCompute
	if sessionID != "" {
		subject = events.SubjectResultsComputed(sessionID)
	}
	c.events.Publish(subject, events.ResultsComputedEvent{
		SessionID: sessionID,
		Surface:   surface,
		Overall:   grading.FormatFigure(res.Overall),
		Best90:    grading.FormatFigure(res.Best90),
		Worst30:   grading.FormatFigure(res.Worst30),
		Courses:   len(res.Courses),
		Timestamp: time.Now().UTC(),
	})
	return cat, entries, res
}

// resolve takes every weight from cat, so entries made before a catalog
// reload follow the new one. Pairs cat no longer has are dropped.
func resolve(cat *catalog.Catalog, entries []grading.ScoreEntry) []grading.ScoreEntry {
	out := make([]grading.ScoreEntry, 0, len(entries))
	for _, e := range entries {
		comp, err := cat.Component(e.Course, e.Title)
		if err != nil {
			continue
		}
		e.WeightPercent = comp.WeightPercent
		out = append(out, e)
	}
	return out
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/config"
	"github.com/MikeSquared-Agency/gradecalc/internal/events"
	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

const (
	projectMaterial = "Supporting Project Material (25%)"
	projectReport   = "Project Report (10,000 Words) (75%)"
)

type recordingEvents struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recordingEvents) Publish(subject string, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	return nil
}
func (r *recordingEvents) Close() {}

func (r *recordingEvents) has(subject string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type testEnv struct {
	router  http.Handler
	store   *session.MemoryStore
	live    *catalog.Live
	events  *recordingEvents
	metrics *Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewMemoryStore()
	rec := &recordingEvents{}
	metrics := NewMetrics(prometheus.NewRegistry(), store)
	cfg := &config.Config{Server: config.ServerConfig{
		AllowedOrigins: []string{"http://example.test"},
	}}
	live := catalog.NewLive(catalog.Default())
	router := NewRouter(store, live, events.NewPublisher(rec, logger), metrics, cfg, logger)
	return &testEnv{router: router, store: store, live: live, events: rec, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, "POST", "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["session_id"]
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestIndex_StartsFreshSessionEachLoad(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, pageTitle)
	assert.Contains(t, body, "Overall Result:")
	assert.Contains(t, body, "Best 90 Credits:")
	assert.Contains(t, body, "Worst 30 Credits:")
	assert.Contains(t, body, "CN6103 - Project")
	assert.Contains(t, body, `name="CN6211/Group Development Task (1500 Words) (100%)"`)
	assert.Equal(t, 8, strings.Count(body, "<input name="))
	// edits are sent one at a time, in input order
	assert.Contains(t, body, "pending = pending.then(")
	assert.Contains(t, body, `<span id="overall">0</span>`)

	env.do(t, "GET", "/", nil)
	assert.Equal(t, 2, env.store.Len())
}

func TestSetEntry_ProjectScenario(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)
	path := "/api/v1/sessions/" + sid + "/entries"

	w := env.do(t, "PUT", path, EntryRequest{Course: "CN6103", Title: projectMaterial, Value: "80"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, "PUT", path, EntryRequest{Course: "CN6103", Title: projectReport, Value: "70"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeSession(t, w)
	assert.Equal(t, sid, resp.SessionID)
	assert.Len(t, resp.Entries, 2)
	require.NotNil(t, resp.Results.Overall)
	assert.InDelta(t, 27.1875, *resp.Results.Overall, 1e-9)
	assert.Equal(t, "27.19", resp.Results.Display.Overall)
	assert.Equal(t, "72.5", resp.Results.Display.Courses["CN6103"])
	assert.Equal(t, "", resp.Results.Display.Courses["CN6107"])
	assert.Equal(t, "0", resp.Results.Display.Worst30)

	require.Len(t, resp.Results.Courses, 1)
	assert.Equal(t, "best90", resp.Results.Courses[0].Group)
	assert.Equal(t, 45, resp.Results.Courses[0].Credits)
}

func TestSetEntry_ReplacesExistingPair(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)
	path := "/api/v1/sessions/" + sid + "/entries"

	env.do(t, "PUT", path, EntryRequest{Course: "CN6121", Title: "Coursework (100%)", Value: "6"})
	w := env.do(t, "PUT", path, EntryRequest{Course: "CN6121", Title: "Coursework (100%)", Value: "64"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeSession(t, w)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "64", resp.Entries[0].Value)
	assert.Equal(t, float64(100), resp.Entries[0].WeightPercent)
}

func TestSetEntry_NonNumericGivesNaN(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	w := env.do(t, "PUT", "/api/v1/sessions/"+sid+"/entries", EntryRequest{Course: "CN6121", Title: "Coursework (100%)", Value: "abc"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeSession(t, w)
	assert.Nil(t, resp.Results.Overall)
	assert.Nil(t, resp.Results.Best90)
	assert.Equal(t, "NaN", resp.Results.Display.Overall)
	assert.Equal(t, "", resp.Results.Display.Courses["CN6121"])
}

func TestSetEntry_Errors(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	t.Run("unknown component", func(t *testing.T) {
		w := env.do(t, "PUT", "/api/v1/sessions/"+sid+"/entries", EntryRequest{Course: "CN6121", Title: "Viva", Value: "50"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("unknown session", func(t *testing.T) {
		w := env.do(t, "PUT", "/api/v1/sessions/"+uuid.New().String()+"/entries", EntryRequest{Course: "CN6121", Title: "Coursework (100%)", Value: "50"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("invalid id", func(t *testing.T) {
		w := env.do(t, "PUT", "/api/v1/sessions/not-a-uuid/entries", EntryRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/v1/sessions/"+sid+"/entries", strings.NewReader("{"))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetSession(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	w := env.do(t, "GET", "/api/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSession(t, w)
	assert.Empty(t, resp.Entries)
	require.NotNil(t, resp.Results.Overall)
	assert.Equal(t, float64(0), *resp.Results.Overall)

	w = env.do(t, "GET", "/api/v1/sessions/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompute_Stateless(t *testing.T) {
	env := newTestEnv(t)

	var entries []EntryRequest
	for _, f := range catalog.Default().Fields() {
		entries = append(entries, EntryRequest{Course: f.Course.Code, Title: f.Component.Title, Value: "10"})
	}
	// later pairs replace earlier ones
	for _, f := range catalog.Default().Fields() {
		entries = append(entries, EntryRequest{Course: f.Course.Code, Title: f.Component.Title, Value: "100"})
	}

	w := env.do(t, "POST", "/api/v1/compute", ComputeRequest{Entries: entries})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ResultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "100", resp.Display.Overall)
	assert.Equal(t, "100", resp.Display.Best90)
	assert.Equal(t, "100", resp.Display.Worst30)
	assert.Len(t, resp.Courses, 6)
	assert.Equal(t, 0, env.store.Len())
	assert.True(t, env.events.has(events.SubjectStatelessCompute))
}

func TestCompute_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/v1/compute", ComputeRequest{Entries: []EntryRequest{{Course: "XX1", Title: "Exam", Value: "1"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/api/v1/compute", strings.NewReader("nope"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Courses, 6)
	assert.Equal(t, 120, resp.TotalCredits)
	assert.Equal(t, 90, resp.BestCredits)
	assert.Equal(t, 30, resp.WorstCredits)
	assert.Equal(t, "CN6103", resp.Courses[0].Code)
	assert.Len(t, resp.Courses[0].Components, 2)
}

func TestSubmitForm(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.store.Create(context.Background())
	require.NoError(t, err)

	form := url.Values{}
	for _, f := range catalog.Default().Fields() {
		form.Set(fieldName(f.Course.Code, f.Component.Title), "")
	}
	form.Set(fieldName("CN6103", projectMaterial), "80")
	form.Set(fieldName("CN6103", projectReport), "70")

	req := httptest.NewRequest("POST", "/sessions/"+id.String(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<span id="overall">27.19</span>`)
	assert.Contains(t, body, `value="80"`)
	assert.Contains(t, body, `>72.5</div>`)

	entries, err := env.store.Entries(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "blank fields must not create entries")
}

func TestSubmitForm_UnknownSessionRedirects(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/sessions/"+uuid.New().String(), strings.NewReader("f0=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestEditsRecordMetricsAndEvents(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	env.do(t, "PUT", "/api/v1/sessions/"+sid+"/entries", EntryRequest{Course: "CN6103", Title: projectMaterial, Value: "55"})

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.EntryUpdates.WithLabelValues("CN6103")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.Recomputations.WithLabelValues(surfaceAPI)))
	assert.True(t, env.events.has(events.SubjectEntryUpdated(sid)))
	assert.True(t, env.events.has(events.SubjectResultsComputed(sid)))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/catalog", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "http://example.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRouterHealth(t *testing.T) {
	router := NewMetricsRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func withProject(t *testing.T, project catalog.Course) *catalog.Catalog {
	t.Helper()
	courses := catalog.Default().Courses()
	courses[0] = project
	cat, err := catalog.New(courses)
	require.NoError(t, err)
	return cat
}

func TestCatalogReload_ReweighsSessionEntries(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)

	w := env.do(t, "PUT", "/api/v1/sessions/"+sid+"/entries", EntryRequest{Course: "CN6103", Title: projectMaterial, Value: "100"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "25", decodeSession(t, w).Results.Display.Courses["CN6103"])

	env.live.Store(withProject(t, catalog.Course{Code: "CN6103", Name: "Project", Credits: 45, Components: []catalog.Component{
		{Title: projectMaterial, WeightPercent: 50},
		{Title: projectReport, WeightPercent: 50},
	}}))

	w = env.do(t, "GET", "/api/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSession(t, w)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, float64(50), resp.Entries[0].WeightPercent)
	assert.Equal(t, "50", resp.Results.Display.Courses["CN6103"])
	assert.Equal(t, "18.75", resp.Results.Display.Overall)
}

func TestCatalogReload_DropsRemovedComponents(t *testing.T) {
	env := newTestEnv(t)
	sid := env.newSession(t)
	path := "/api/v1/sessions/" + sid + "/entries"

	env.do(t, "PUT", path, EntryRequest{Course: "CN6103", Title: projectMaterial, Value: "100"})
	env.do(t, "PUT", path, EntryRequest{Course: "CN6121", Title: "Coursework (100%)", Value: "60"})

	env.live.Store(withProject(t, catalog.Course{Code: "CN6103", Name: "Project", Credits: 45, Components: []catalog.Component{
		{Title: "Dissertation (100%)", WeightPercent: 100},
	}}))

	w := env.do(t, "GET", "/api/v1/sessions/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSession(t, w)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "CN6121", resp.Entries[0].Course)
	assert.Equal(t, "", resp.Results.Display.Courses["CN6103"])
	assert.Equal(t, "7.5", resp.Results.Display.Overall)

	// the form page follows the reloaded catalog too
	page := env.do(t, "GET", "/", nil).Body.String()
	assert.Contains(t, page, `name="CN6103/Dissertation (100%)"`)
	assert.NotContains(t, page, projectMaterial)
}

func TestWritePageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown component", fmt.Errorf("%w: CN6103 %q", catalog.ErrUnknownComponent, "Viva"), http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writePageError(w, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

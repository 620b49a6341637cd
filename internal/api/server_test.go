package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub/hackhub/internal/auth"
	"github.com/hackhub/hackhub/internal/config"
	"github.com/hackhub/hackhub/internal/domain"
	"github.com/hackhub/hackhub/internal/favorites"
	"github.com/hackhub/hackhub/internal/ingest"
	"github.com/hackhub/hackhub/internal/snapshot"
	"github.com/hackhub/hackhub/internal/stream"
)

// fakeStreamer emits a fixed set of records per provider and then ends the
// connection.
type fakeStreamer struct {
	records map[string][]domain.Event
}

func (f *fakeStreamer) Stream(ctx context.Context, provider string, criteria domain.Criteria, fn stream.Handler) error {
	for _, rec := range f.records[provider] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		fn(rec)
	}
	return nil
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	runs     *ingest.Registry
	sessions *auth.SessionStore
}

func newTestEnv(t *testing.T, streamer ingest.Streamer, backendURL string) testEnv {
	t.Helper()

	favs, err := favorites.Open(filepath.Join(t.TempDir(), "favorites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = favs.Close() })

	snapshots := snapshot.NewMemoryStore()
	runs := ingest.NewRegistry()
	sessions := auth.NewSessionStore(time.Hour)

	cfg := config.AppConfig{
		CORSOrigins:  []string{"*"},
		RateLimitRPM: 0,
	}
	srv := New(context.Background(), cfg, Deps{
		Supervisor: ingest.NewSupervisor(streamer, snapshots),
		Runs:       runs,
		Snapshots:  snapshots,
		Favorites:  favs,
		AuthClient: auth.NewClient(backendURL),
		Sessions:   sessions,
	})

	return testEnv{server: srv, handler: srv.Router(), runs: runs, sessions: sessions}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func waitForCompletion(t *testing.T, env testEnv, runID string) {
	t.Helper()
	run, err := env.runs.Get(runID)
	require.NoError(t, err)
	require.NoError(t, run.Wait(testContext(t)))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &fakeStreamer{}, "http://127.0.0.1:1")
	rec := get(t, env.handler, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","runs":0}`, rec.Body.String())
}

func TestStartSearchAndFetchEvents(t *testing.T) {
	streamer := &fakeStreamer{records: map[string][]domain.Event{
		"oracle": {
			{ID: 1, Title: "Cloud AI Certification", Type: domain.CategoryCertification, Provider: "oracle", Date: "2026-09-01"},
		},
		"ibm": {
			{ID: 2, Title: "Quantum Certification", Type: domain.CategoryCertification, Provider: "ibm", Date: "2026-10-01"},
		},
		"microsoft": {},
	}}
	env := newTestEnv(t, streamer, "http://127.0.0.1:1")

	rec := postJSON(t, env.handler, "/api/search", domain.Criteria{ScrapeType: domain.SearchCertificates})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var status runStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.NotEmpty(t, status.RunID)

	waitForCompletion(t, env, status.RunID)

	rec = get(t, env.handler, "/api/search/"+status.RunID+"/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Completed)
	assert.Equal(t, 2, status.Count)

	rec = get(t, env.handler, "/api/search/"+status.RunID+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "Quantum Certification", events[0].Title)
	assert.Equal(t, "Cloud AI Certification", events[1].Title)
}

func TestStartSearchRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t, &fakeStreamer{}, "http://127.0.0.1:1")
	rec := postJSON(t, env.handler, "/api/search", map[string]string{"scrapeType": "podcasts"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunNotFound(t *testing.T) {
	env := newTestEnv(t, &fakeStreamer{}, "http://127.0.0.1:1")
	rec := get(t, env.handler, "/api/search/nope/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = get(t, env.handler, "/api/search/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestEventsEmptyThenPopulated(t *testing.T) {
	streamer := &fakeStreamer{records: map[string][]domain.Event{
		"oracle": {{ID: 7, Title: "Java Certification", Type: domain.CategoryCertification, Provider: "oracle"}},
	}}
	env := newTestEnv(t, streamer, "http://127.0.0.1:1")

	rec := get(t, env.handler, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	resp := postJSON(t, env.handler, "/api/search", domain.Criteria{
		ScrapeType: domain.SearchCertificates,
		Provider:   "oracle",
	})
	require.Equal(t, http.StatusAccepted, resp.Code)
	var status runStatus
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	waitForCompletion(t, env, status.RunID)

	rec = get(t, env.handler, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Java Certification", events[0].Title)
}

func TestRunStreamReplaysAndCompletes(t *testing.T) {
	streamer := &fakeStreamer{records: map[string][]domain.Event{
		"oracle": {
			{ID: 1, Title: "OCI Certification", Type: domain.CategoryCertification, Provider: "oracle"},
			{ID: 2, Title: "DB Certification", Type: domain.CategoryCertification, Provider: "oracle"},
		},
	}}
	env := newTestEnv(t, streamer, "http://127.0.0.1:1")

	resp := postJSON(t, env.handler, "/api/search", domain.Criteria{
		ScrapeType: domain.SearchCertificates,
		Provider:   "oracle",
	})
	require.Equal(t, http.StatusAccepted, resp.Code)
	var status runStatus
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	waitForCompletion(t, env, status.RunID)

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/search/" + status.RunID + "/stream")
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	var records int
	var completePayload string
	scanner := bufio.NewScanner(res.Body)
	currentEvent := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if currentEvent == "record" {
				records++
			} else if currentEvent == "complete" {
				completePayload = strings.TrimPrefix(line, "data: ")
			}
		}
		if completePayload != "" {
			break
		}
	}
	assert.Equal(t, 2, records)
	assert.JSONEq(t, `{"count":2}`, completePayload)
}

func TestFavoritesRequireSession(t *testing.T) {
	env := newTestEnv(t, &fakeStreamer{}, "http://127.0.0.1:1")

	rec := get(t, env.handler, "/api/favorites/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, env.handler, "/api/favorites/", map[string]string{"Authorization": "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLoginAndFavoritesFlow(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		var creds auth.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":    "tok-123",
			"id":       42,
			"username": creds.Username,
			"email":    "dev@example.com",
			"role":     "user",
		})
	}))
	defer backend.Close()

	env := newTestEnv(t, &fakeStreamer{}, backend.URL)

	rec := postJSON(t, env.handler, "/api/auth/login", auth.Credentials{Username: "dev", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, env.handler, "/api/auth/login", auth.Credentials{Username: "dev", Password: "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var sess sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "tok-123", sess.Token)
	assert.Equal(t, int64(42), sess.ID)

	authHeader := map[string]string{"Authorization": "Bearer " + sess.Token}

	ev := domain.Event{ID: 9, Title: "AI Hackathon", Provider: "mlh", Type: domain.CategoryHackathon}
	buf, err := json.Marshal(ev)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/favorites/", bytes.NewReader(buf))
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	rec = get(t, env.handler, "/api/favorites/", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	var favs []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "AI Hackathon", favs[0].Title)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/favorites/%d", ev.ID), nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/favorites/%d", ev.ID), nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackhub/hackhub/internal/domain"
	"github.com/hackhub/hackhub/internal/ingest"
	hublog "github.com/hackhub/hackhub/internal/log"
	"github.com/hackhub/hackhub/internal/snapshot"
)

// runStatus is the JSON shape for run metadata responses.
type runStatus struct {
	RunID     string          `json:"runId"`
	Criteria  domain.Criteria `json:"criteria"`
	Completed bool            `json:"completed"`
	Count     int             `json:"count"`
}

func statusFor(run *ingest.Run) runStatus {
	return runStatus{
		RunID:     run.ID,
		Criteria:  run.Criteria,
		Completed: run.Completed(),
		Count:     run.Count(),
	}
}

// handleStartSearch starts a new search run and returns its id. The run is
// bound to the server's root context, not the request's: it keeps ingesting
// after this handler returns.
func (s *Server) handleStartSearch(w http.ResponseWriter, r *http.Request) {
	var criteria domain.Criteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := s.supervisor.Start(s.rootCtx, criteria)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runs.Add(run)

	logger(r.Context(), "api").Info().
		Str(hublog.FieldEvent, "search.start").
		Str(hublog.FieldRunID, run.ID).
		Str(hublog.FieldCategory, string(run.Criteria.ScrapeType)).
		Msg("search run started")

	writeJSON(w, http.StatusAccepted, statusFor(run))
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*ingest.Run, bool) {
	run, err := s.runs.Get(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

// handleRunStatus reports whether a run has completed and its current count.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, statusFor(run))
}

// handleRunEvents returns the run's merged collection as of now, in display
// order.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	events := run.Events()
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleLatestEvents serves the most recent persisted collection, surviving
// daemon restarts. An empty array when nothing has been persisted yet.
func (s *Server) handleLatestEvents(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeJSON(w, http.StatusOK, []domain.Event{})
		return
	}
	v, err, _ := s.latestGroup.Do(snapshot.KeyLatest, func() (any, error) {
		return s.snapshots.Read(r.Context(), snapshot.KeyLatest)
	})
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeJSON(w, http.StatusOK, []domain.Event{})
			return
		}
		logger(r.Context(), "api").Error().Err(err).
			Str(hublog.FieldEvent, "snapshot.read_failed").
			Msg("failed to read latest snapshot")
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	events, _ := v.([]domain.Event)
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleRunStream fans the run out to the client over SSE: it replays the
// collection merged so far, forwards each record accepted afterwards, and
// ends with a complete event carrying the final count. Slow consumers that
// overflow their buffer miss records but still get the terminal event.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := logger(r.Context(), "api").With().Str(hublog.FieldRunID, run.ID).Logger()

	// Subscribe before replaying so nothing accepted in between is lost;
	// replayed records are tracked and skipped when they arrive again on the
	// watch channel.
	updates, cancel := run.Watch()
	defer cancel()

	seen := make(map[string]struct{})
	for _, rec := range run.Events() {
		seen[recordKey(rec)] = struct{}{}
		if err := writeSSE(w, flusher, "record", rec); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case rec, open := <-updates:
			if !open {
				final := map[string]int{"count": run.FinalCount()}
				if err := writeSSE(w, flusher, "complete", final); err != nil {
					return
				}
				log.Debug().Str(hublog.FieldEvent, "stream.complete").Msg("run stream completed")
				return
			}
			key := recordKey(rec)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if err := writeSSE(w, flusher, "record", rec); err != nil {
				return
			}
		}
	}
}

// recordKey mirrors the merge store's identity: non-zero id wins, else the
// title and provider pair.
func recordKey(rec domain.Event) string {
	if rec.ID != 0 {
		return fmt.Sprintf("id:%d", rec.ID)
	}
	return "tp:" + rec.Title + "\x00" + rec.Provider
}

// writeSSE emits one named SSE event with a JSON payload and flushes it.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

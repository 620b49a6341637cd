package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackhub/hackhub/internal/auth"
	"github.com/hackhub/hackhub/internal/domain"
	"github.com/hackhub/hackhub/internal/favorites"
	hublog "github.com/hackhub/hackhub/internal/log"
)

func sessionUserID(r *http.Request) (string, bool) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return "", false
	}
	return strconv.FormatInt(sess.User.ID, 10), true
}

// handleListFavorites returns the user's bookmarks, most recently saved first.
func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	events, err := s.favorites.List(r.Context(), userID)
	if err != nil {
		logger(r.Context(), "api").Error().Err(err).
			Str(hublog.FieldEvent, "favorites.list_failed").
			Msg("failed to list favorites")
		writeError(w, http.StatusInternalServerError, "favorites unavailable")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleAddFavorite bookmarks an event for the authenticated user.
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.ID == 0 {
		writeError(w, http.StatusBadRequest, "event id is required")
		return
	}
	if err := s.favorites.Add(r.Context(), userID, ev); err != nil {
		logger(r.Context(), "api").Error().Err(err).
			Str(hublog.FieldEvent, "favorites.add_failed").
			Msg("failed to add favorite")
		writeError(w, http.StatusInternalServerError, "favorites unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// handleRemoveFavorite deletes a bookmark by event id.
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil || eventID == 0 {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if err := s.favorites.Remove(r.Context(), userID, eventID); err != nil {
		if errors.Is(err, favorites.ErrNotFound) {
			writeError(w, http.StatusNotFound, "favorite not found")
			return
		}
		logger(r.Context(), "api").Error().Err(err).
			Str(hublog.FieldEvent, "favorites.remove_failed").
			Msg("failed to remove favorite")
		writeError(w, http.StatusInternalServerError, "favorites unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackhub/hackhub/internal/auth"
	hublog "github.com/hackhub/hackhub/internal/log"
)

// sessionResponse is the JSON shape returned after login or registration,
// mirroring the backend's auth payload.
type sessionResponse struct {
	Token    string `json:"token"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func sessionBody(sess auth.Session) sessionResponse {
	return sessionResponse{
		Token:    sess.Token,
		ID:       sess.User.ID,
		Username: sess.User.Username,
		Email:    sess.User.Email,
		Role:     sess.User.Role,
	}
}

// handleLogin proxies credentials to the backend and registers the resulting
// session locally.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	sess, err := s.authClient.Login(r.Context(), creds)
	if err != nil {
		s.writeAuthError(w, r, "login", err)
		return
	}
	sess = s.sessions.Put(sess)

	logger(r.Context(), "api").Info().
		Str(hublog.FieldEvent, "auth.login").
		Int64(hublog.FieldUserID, sess.User.ID).
		Msg("user logged in")

	writeJSON(w, http.StatusOK, sessionBody(sess))
}

// handleRegister proxies a registration to the backend; a successful register
// also yields a live session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	sess, err := s.authClient.Register(r.Context(), reg)
	if err != nil {
		s.writeAuthError(w, r, "register", err)
		return
	}
	sess = s.sessions.Put(sess)

	logger(r.Context(), "api").Info().
		Str(hublog.FieldEvent, "auth.register").
		Int64(hublog.FieldUserID, sess.User.ID).
		Msg("user registered")

	writeJSON(w, http.StatusCreated, sessionBody(sess))
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	logger(r.Context(), "api").Error().Err(err).
		Str(hublog.FieldEvent, "auth."+op+"_failed").
		Msg("auth backend request failed")
	writeError(w, http.StatusBadGateway, "auth backend unavailable")
}

// requireSession resolves the bearer token into a session and stores it in
// the request context. Requests without a live session get a 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, ok := s.sessions.Get(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired or unknown")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), sess)))
	})
}

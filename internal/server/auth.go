package server

import (
	"net/http"

	"github.com/joseph-ayodele/cardmate/internal/entity"
	"github.com/joseph-ayodele/cardmate/internal/services/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        userPayload `json:"user"`
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newTokenResponse(token string, u *entity.User) tokenResponse {
	return tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userPayload{ID: u.ID.String(), Username: u.Username, Email: u.Email},
	}
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[auth.RegisterRequest](r, s.cfg.MaxJSONBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}
	u, err := s.deps.Auth.Register(r.Context(), req)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	token, err := s.deps.Auth.IssueToken(u.ID)
	if err != nil {
		s.logger.Error("issue token failed", "user_id", u.ID, "error", err)
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTokenResponse(token, u))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[loginRequest](r, s.cfg.MaxJSONBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}
	token, u, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(token, u))
}

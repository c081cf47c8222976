package server

import (
	"net/http"

	"github.com/quantitva/market-intel/auth"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !readJSON(w, r, &req) {
		return
	}

	resp, err := s.authService.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"token":     resp.Token,
		"expiresIn": resp.ExpiresIn,
		"user":      resp.User,
		"timestamp": nowStamp(),
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !readJSON(w, r, &req) {
		return
	}

	resp, err := s.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     resp.Token,
		"expiresIn": resp.ExpiresIn,
		"user":      resp.User,
		"timestamp": nowStamp(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())

	user, err := s.authService.CurrentUser(r.Context(), claims)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"user":      user,
		"timestamp": nowStamp(),
	})
}

type updateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())

	var req updateUserRequest
	if !readJSON(w, r, &req) {
		return
	}

	user, err := s.authService.UpdateUser(r.Context(), claims, req.Email, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"user":      user,
		"timestamp": nowStamp(),
	})
}

type resetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// handleResetPassword serves both halves of the reset flow: an email-only
// body requests a token, a token+password body consumes it. The request
// half always reports success so account existence is not leaked.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !readJSON(w, r, &req) {
		return
	}

	if req.Token != "" {
		if err := s.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   "Password updated",
			"timestamp": nowStamp(),
		})
		return
	}

	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Validation failed", "email or token is required")
		return
	}

	if _, err := s.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "If the account exists, a reset link has been sent",
		"timestamp": nowStamp(),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	claims := auth.UserFromContext(r.Context())

	if err := s.authService.SignOut(r.Context(), claims); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Signed out",
		"timestamp": nowStamp(),
	})
}

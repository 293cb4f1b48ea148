package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/weaverai/weaver/internal/auth"
)

// authHandler serves account registration and session endpoints.
type authHandler struct {
	store   AuthStore
	dataDir string
	isDev   bool
	logger  *slog.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.store.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTooShort), errors.Is(err, auth.ErrPasswordTooShort):
			writeError(w, http.StatusBadRequest, "invalid_credentials", err.Error())
		case errors.Is(err, auth.ErrUserExists):
			writeError(w, http.StatusConflict, "user_exists", "username or email already registered")
		default:
			h.logger.Error("registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "register_failed", "failed to register")
		}
		return
	}

	if h.dataDir != "" {
		if _, err := auth.EnsureDirs(h.dataDir, user.Username); err != nil {
			h.logger.Error("failed to create user workspace", "user", user.Username, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.store.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login_failed", "failed to log in")
		return
	}

	user, err := h.store.Verify(r.Context(), session.Token)
	if err != nil {
		h.logger.Error("login verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login_failed", "failed to log in")
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			token = cookie.Value
		}
	}

	if err := h.store.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "logout_failed", "failed to log out")
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *authHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   !h.isDev,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *authHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.isDev,
		SameSite: http.SameSiteLaxMode,
	})
}

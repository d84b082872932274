package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/noah-isme/bakery-quote/internal/common"
)

// Handler exposes the admin login surface.
type Handler struct {
	Svc          *Service
	SecureCookie bool
}

// Login verifies the admin password and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	token, expires, err := h.Svc.Login(payload.Password)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, nil)
			return
		}
		common.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"authenticated": true,
			"expires_at":    expires.UTC().Format(time.RFC3339),
		},
	})
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"authenticated": false},
	})
}

// Session reports whether the request carries a valid admin session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	authenticated := h.Svc != nil && h.Svc.Enabled() && h.Svc.ParseSession(extractToken(r)) == nil
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"authenticated": authenticated},
	})
}

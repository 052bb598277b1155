package handler

import (
	"net/http"
	"time"

	"github.com/shopworks/storefront/internal/domain/user"
)

// cookieMaxAge mirrors the token lifetime the original service used.
const cookieMaxAge = 24 * time.Hour

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userJSON is the account wire shape.
type userJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserJSON(u *user.User) userJSON {
	return userJSON{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Register(r.Context(), user.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if !h.issueCookie(w, r, u) {
		return
	}
	respond(w, http.StatusCreated, toUserJSON(u))
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if !h.issueCookie(w, r, u) {
		return
	}
	respond(w, http.StatusOK, toUserJSON(u))
}

// Logout handles POST /auth/logout by expiring the auth cookie.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
	respondMessage(w, http.StatusOK, "Logged out successfully")
}

// Profile handles GET /auth/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	u, err := h.users.Profile(r.Context(), p.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toUserJSON(u))
}

// issueCookie signs a token for u and attaches it as an http-only cookie.
// It answers the request itself on failure and returns false.
func (h *Handler) issueCookie(w http.ResponseWriter, r *http.Request, u *user.User) bool {
	token, err := h.tokens.Issue(u)
	if err != nil {
		respondError(w, r, err)
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(cookieMaxAge.Seconds()),
	})
	return true
}

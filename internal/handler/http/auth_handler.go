package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// UserSessionKey is the session entry holding the authenticated user id.
const UserSessionKey = "user_id"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type userCtxKey struct{}

// UserFromContext returns the user resolved by RequireAuth.
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*auth.User)
	return u, ok
}

type AuthHandler struct {
	auth     auth.Authenticator
	sessions session.Store
	limiter  *IPRateLimiter
	validate *validator.Validate
}

func NewAuthHandler(authenticator auth.Authenticator, sessions session.Store, limiter *IPRateLimiter) *AuthHandler {
	return &AuthHandler{
		auth:     authenticator,
		sessions: sessions,
		limiter:  limiter,
		validate: validator.New(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	if h.limiter != nil {
		router.With(h.limiter.Middleware).Post("/login", h.handleLogin)
	} else {
		router.Post("/login", h.handleLogin)
	}
	router.Get("/login", h.handleLoginRequired)
	router.Post("/logout", h.handleLogout)
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	return next
}

// LoginRequiredResponse answers GET /login, where RequireAuth sends visitors.
type LoginRequiredResponse struct {
	Error string `json:"error"`
	Next  string `json:"next,omitempty"`
}

func (h *AuthHandler) handleLoginRequired(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusUnauthorized, LoginRequiredResponse{
		Error: "Login required: POST credentials to /login",
		Next:  safeNext(r.URL.Query().Get("next")),
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	u, err := h.auth.Authenticate(r.Context(), requestPayload.Username, requestPayload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	sess := session.FromContext(r.Context())
	sess.Renew()
	if err := sess.Set(UserSessionKey, u.ID.String()); err != nil {
		log.Error().Err(err).Msg("Failed to store user in session")
		respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	if !saveSession(w, r, h.sessions, sess) {
		return
	}

	log.Info().Stringer("user_id", u.ID).Msg("User logged in")
	if next := safeNext(r.URL.Query().Get("next")); next != "" {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	respondWithJSON(w, http.StatusOK, UserResponse{ID: u.ID, Username: u.Username})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	sess.Clear()
	if !saveSession(w, r, h.sessions, sess) {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
}

// RequireAuth lets the request through only when the session holds a known
// user; everyone else is sent to the login page.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())

		var rawID string
		found, err := sess.Get(UserSessionKey, &rawID)
		if err != nil || !found {
			redirectToLogin(w, r)
			return
		}

		userID, err := uuid.FromString(rawID)
		if err != nil {
			log.Warn().Str("user_id", rawID).Msg("Malformed user id in session")
			sess.Delete(UserSessionKey)
			if saveSession(w, r, h.sessions, sess) {
				redirectToLogin(w, r)
			}
			return
		}

		u, err := h.auth.GetUser(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, auth.ErrUserNotFound) {
				log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to resolve session user")
				respondWithError(w, http.StatusInternalServerError, "Failed to resolve session user")
				return
			}
			sess.Delete(UserSessionKey)
			if saveSession(w, r, h.sessions, sess) {
				redirectToLogin(w, r)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u)))
	})
}

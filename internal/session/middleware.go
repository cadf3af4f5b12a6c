package session

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// Middleware loads the visitor's session and attaches it to the request context.
// Handlers persist changes with Store.Save before writing the response.
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Load(r)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to load session")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
		})
	}
}

package auth

import (
	"net/http"
	"strings"

	"github.com/odyssey-erp/gymsuite/internal/platform/httpx"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Middleware rejects requests without a valid bearer token and stores the
// caller's request context for handlers.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		rc, err := s.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithRequest(r.Context(), rc)))
	})
}

// RequireAdmin only lets administrators through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := shared.RequestFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		if !rc.IsAdmin {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/fdg312/mealweek/internal/config"
	"github.com/fdg312/mealweek/internal/userctx"
)

// Middleware — проверка Bearer-токена и установка user_id в контекст.
type Middleware struct {
	config  *config.Config
	service *Service
}

func NewMiddleware(cfg *config.Config, service *Service) *Middleware {
	return &Middleware{
		config:  cfg,
		service: service,
	}
}

// RequireAuth rejects requests without a valid token when AUTH_REQUIRED is set.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.wrap(next, m.config.AuthRequired)
}

// OptionalAuth validates a Bearer token only when one is provided;
// anonymous requests fall through to the default user.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return m.wrap(next, false)
}

func (m *Middleware) wrap(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" && !required {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticate(header)
		if err != nil {
			message := "Invalid or expired token"
			if header == "" {
				message = "Unauthorized"
			}
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", message)
			return
		}

		log.Printf("INFO auth: token accepted sub=%s method=%s path=%s", userID, r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) authenticate(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	return m.service.Verify(strings.TrimSpace(token))
}

func isPublicPath(path string) bool {
	switch {
	case path == "/healthz", path == "/metrics":
		return true
	case strings.HasPrefix(path, "/v1/auth/"):
		return true
	}
	return false
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	var body apiError
	body.Error.Code = code
	body.Error.Message = message
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

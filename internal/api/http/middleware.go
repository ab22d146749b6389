package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/security"
)

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Require authenticates the bearer token and only admits tokens of the given type.
func (m *AuthMiddleware) Require(tokenType security.TokenType) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "authorization token is not provided")
				return
			}

			claims, err := m.tokenManager.ValidateToken(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, security.ErrExpiredToken) {
					msg = "token has expired"
				}
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}
			if claims.Type != tokenType {
				writeAuthError(w, http.StatusForbidden, security.ErrWrongTokenType.Error())
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = logger.WithContextAttrs(ctx, "userID", claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	token := r.Header.Get("Authorization")
	if token == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return token, token != ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogging tags each request with an id, logs its outcome and turns
// handler panics into 500s.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithContextAttrs(r.Context(), "requestID", requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(ctx, "Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p)
				writeJSON(rec, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
			logger.InfoContext(ctx, "HTTP request", "method", r.Method, "path", r.URL.Path,
				"status", rec.status, "duration_ms", time.Since(start).Milliseconds())
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

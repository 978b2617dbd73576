package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xilidan/vidscribe/pkg/json"
	"github.com/xilidan/vidscribe/pkg/jwt"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// Auth requires a valid HS256 bearer token. An empty secret disables the check.
func Auth(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := jwt.ParseTokenFromHeader(r)
			if err != nil {
				log.Debug("request without bearer token", slog.String("path", r.URL.Path))
				json.WriteError(w, http.StatusUnauthorized, err)
				return
			}

			subject, err := jwt.ParseSubject(r.Context(), token, secret)
			if err != nil {
				log.Warn("rejected bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				json.WriteError(w, http.StatusUnauthorized, jwt.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey).(string)
	return s
}

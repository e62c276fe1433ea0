package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// Имена стандартных стадий.
const (
	StageCORS       = "cors"
	StageJSON       = "json"
	StageURLEncoded = "urlencoded"
	StageCookies    = "cookies"
	StageSession    = "session"
)

// MaxJSONBody предельный размер JSON-тела запроса.
const MaxJSONBody = 100 << 10

// CORS разрешает запросы с любых источников.
func CORS() Stage {
	return Stage{
		Name: StageCORS,
		Middleware: cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
	}
}

// JSON ограничивает размер JSON-тела и отклоняет некорректный JSON
// до вызова обработчика.
func JSON(log *slog.Logger, limit int64) Stage {
	if limit <= 0 {
		limit = MaxJSONBody
	}
	return Stage{
		Name: StageJSON,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !hasMediaType(r, "application/json") || r.Body == nil {
					next.ServeHTTP(w, r)
					return
				}

				const op = "pipeline.json"
				log := log.With(
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)

				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
				if err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						log.Error("request body too large", slog.Int64("limit", limit))
						render.Status(r, http.StatusRequestEntityTooLarge)
						render.JSON(w, r, response.Error("request body too large"))
						return
					}
					log.Error("failed to read request body", sl.Err(err))
					render.Status(r, http.StatusBadRequest)
					render.JSON(w, r, response.Error("invalid request body"))
					return
				}

				if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
					log.Error("malformed json body")
					render.Status(r, http.StatusBadRequest)
					render.JSON(w, r, response.Error("invalid request body"))
					return
				}

				r.Body = io.NopCloser(bytes.NewReader(body))
				next.ServeHTTP(w, r)
			})
		},
	}
}

// URLEncoded разбирает тело формы в r.Form.
func URLEncoded(log *slog.Logger) Stage {
	return Stage{
		Name: StageURLEncoded,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hasMediaType(r, "application/x-www-form-urlencoded") {
					if err := r.ParseForm(); err != nil {
						log.Error("failed to parse form", sl.Op("pipeline.urlencoded"), sl.Err(err))
						render.Status(r, http.StatusBadRequest)
						render.JSON(w, r, response.Error("invalid form body"))
						return
					}
				}
				next.ServeHTTP(w, r)
			})
		},
	}
}

type cookiesKey struct{}

// Cookies кладет cookie запроса в контекст, индексируя по имени.
func Cookies() Stage {
	return Stage{
		Name: StageCookies,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				jar := make(map[string]*http.Cookie)
				for _, c := range r.Cookies() {
					if _, ok := jar[c.Name]; !ok {
						jar[c.Name] = c
					}
				}
				ctx := context.WithValue(r.Context(), cookiesKey{}, jar)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},
	}
}

// CookiesFromContext возвращает cookie, разобранные стадией cookies.
func CookiesFromContext(ctx context.Context) (map[string]*http.Cookie, bool) {
	jar, ok := ctx.Value(cookiesKey{}).(map[string]*http.Cookie)
	return jar, ok
}

// Session выдает каждому запросу сессию. Требует стадию cookies.
func Session(log *slog.Logger, m *session.Manager) Stage {
	return Stage{
		Name:     StageSession,
		Requires: []string{StageCookies},
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				const op = "pipeline.session"
				log := log.With(
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)

				jar, ok := CookiesFromContext(r.Context())
				if !ok {
					log.Error("cookies stage did not run")
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal error"))
					return
				}

				sess, err := m.Start(r.Context(), w, jar[m.CookieName()])
				if err != nil {
					log.Error("failed to start session", sl.Err(err))
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal error"))
					return
				}

				next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
				m.Commit(context.WithoutCancel(r.Context()), sess)
			})
		},
	}
}

// Default стандартный набор стадий: cors, json, urlencoded, cookies, session.
func Default(log *slog.Logger, m *session.Manager) (*Pipeline, error) {
	return New(
		CORS(),
		JSON(log, MaxJSONBody),
		URLEncoded(log),
		Cookies(),
		Session(log, m),
	)
}

func hasMediaType(r *http.Request, want string) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == want
}

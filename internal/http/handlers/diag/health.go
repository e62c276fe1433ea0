package diag

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger проверка доступности базы данных.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health обработчик GET /api/health. Сервис стартует и без базы,
// поэтому здесь видно, подключена ли она сейчас.
type Health struct {
	log *slog.Logger
	db  Pinger
}

func NewHealth(log *slog.Logger, db Pinger) *Health {
	return &Health{log: log, db: db}
}

// ServeHTTP godoc
// @Summary Состояние сервиса
// @Tags Diagnostics
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /api/health [get]
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.diag.health"

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("database is not reachable",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database unavailable"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"status":   "ok",
		"database": "up",
	}))
}

// Package diag содержит служебные эндпоинты: данные студента и проверку
// наличия собранного фронтенда.
package diag

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// Student ответ /api/student. Порядок полей фиксирован.
type Student struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

var student = Student{Name: "Varniah Kangeswaran", StudentID: "225024153"}

// StudentHandler обработчик GET /api/student.
//
// @Summary Данные студента
// @Tags Diagnostics
// @Produce  json
// @Success 200 {object} Student
// @Router /api/student [get]
func StudentHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, student)
}

// CheckFrontend обработчик GET /check-frontend.
type CheckFrontend struct {
	log  *slog.Logger
	path string
}

// NewCheckFrontend проверяет наличие <dir>/views/landing.html.
func NewCheckFrontend(log *slog.Logger, dir string) *CheckFrontend {
	path, err := filepath.Abs(filepath.Join(dir, "views", "landing.html"))
	if err != nil {
		path = filepath.Join(dir, "views", "landing.html")
	}
	return &CheckFrontend{log: log, path: path}
}

// ServeHTTP godoc
// @Summary Проверка файлов фронтенда
// @Tags Diagnostics
// @Produce  plain
// @Success 200 {string} string "Frontend file EXISTS at <path>"
// @Failure 404 {string} string "Frontend file NOT found at <path>"
// @Router /check-frontend [get]
func (h *CheckFrontend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.diag.checkFrontend"

	if _, err := os.Stat(h.path); err != nil {
		h.log.Warn("frontend file not found",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", h.path),
		)
		render.Status(r, http.StatusNotFound)
		render.PlainText(w, r, fmt.Sprintf("Frontend file NOT found at %s", h.path))
		return
	}
	render.PlainText(w, r, fmt.Sprintf("Frontend file EXISTS at %s", h.path))
}

// Package pipeline собирает цепочку middleware из именованных стадий.
//
// Стадия может требовать, чтобы другая стадия стояла раньше нее
// (например, session работает только после cookies). Порядок проверяется
// при сборке, а не при первом запросе.
package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
)

// ErrStageOrder требование стадии не выполнено: нужная стадия отсутствует или стоит позже.
var ErrStageOrder = errors.New("stage requirement is not satisfied")

// Stage именованное middleware.
type Stage struct {
	Name       string
	Requires   []string
	Middleware func(http.Handler) http.Handler
}

// Pipeline упорядоченный набор стадий.
type Pipeline struct {
	stages []Stage
}

// New проверяет порядок стадий и собирает конвейер.
func New(stages ...Stage) (*Pipeline, error) {
	const op = "pipeline.New"

	seen := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		if s.Name == "" || s.Middleware == nil {
			return nil, fmt.Errorf("%s: stage %q is incomplete", op, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate stage %q", op, s.Name)
		}
		for _, req := range s.Requires {
			if _, ok := seen[req]; !ok {
				return nil, fmt.Errorf("%s: stage %q requires %q before it: %w", op, s.Name, req, ErrStageOrder)
			}
		}
		seen[s.Name] = struct{}{}
	}
	return &Pipeline{stages: stages}, nil
}

// Names возвращает имена стадий в порядке выполнения.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name)
	}
	return names
}

// Mount подключает стадии к роутеру в порядке объявления.
func (p *Pipeline) Mount(r chi.Router) {
	for _, s := range p.stages {
		r.Use(s.Middleware)
	}
}

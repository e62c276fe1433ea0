// Package static раздает файлы фронтенда и загрузок.
package static

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi"
)

// Dirs набор каталогов, просматриваемых по порядку. Первый найденный файл побеждает.
type Dirs []string

// Open реализует http.FileSystem.
func (d Dirs) Open(name string) (http.File, error) {
	var firstErr error
	for _, dir := range d {
		f, err := http.Dir(dir).Open(name)
		if err == nil {
			return f, nil
		}
		if firstErr == nil || !errors.Is(err, fs.ErrNotExist) {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = os.ErrNotExist
	}
	return nil, firstErr
}

// Mount вешает файловый сервер на префикс pattern ("/uploads", "/" и т.п.).
func Mount(r chi.Router, pattern string, dirs ...string) {
	fileServer := http.FileServer(Dirs(dirs))

	if pattern == "/" {
		r.Get("/*", fileServer.ServeHTTP)
		return
	}

	pattern = strings.TrimSuffix(pattern, "/")
	handler := http.StripPrefix(pattern, fileServer)
	r.Get(pattern, http.RedirectHandler(pattern+"/", http.StatusMovedPermanently).ServeHTTP)
	r.Get(pattern+"/*", handler.ServeHTTP)
}

package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// spaHandler serves a built single-page app. Paths that are not files fall
// back to index.html so client-side routes survive a reload. Unknown /api
// paths never reach it.
type spaHandler struct {
	dir   string
	files http.Handler
}

func newSPAHandler(dir string) *spaHandler {
	return &spaHandler{
		dir:   dir,
		files: http.FileServer(http.Dir(dir)),
	}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeNotFound(w, "route not found: "+r.URL.Path)
		return
	}

	clean := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(clean, "/api/") || clean == "/api" {
		writeNotFound(w, "route not found: "+r.URL.Path)
		return
	}

	full := filepath.Join(h.dir, filepath.FromSlash(clean))
	if info, err := os.Stat(full); err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}

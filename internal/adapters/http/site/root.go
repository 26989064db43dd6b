// Package site serves the built dashboard frontend.
package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Error constants
var (
	ErrNoIndex = errors.New("site has no index.html")
)

// Register mounts the dashboard at / on mux. Paths that do not name a file
// in fsys fall back to index.html so client-side routes survive a reload.
// Paths under /api/ are never served from fsys.
func Register(_ context.Context, mux *http.ServeMux, fsys fs.FS) error {
	if mux == nil {
		panic("mux is nil")
	}
	if _, err := fs.Stat(fsys, "index.html"); err != nil {
		return errors.Join(ErrNoIndex, err)
	}
	mux.Handle("GET /", NewRootHandler(fsys))
	return nil
}

// RootHandler serves static assets with an index.html fallback.
type RootHandler struct {
	fsys  fs.FS
	files http.Handler
}

// NewRootHandler creates a new root handler over fsys.
func NewRootHandler(fsys fs.FS) *RootHandler {
	return &RootHandler{fsys: fsys, files: http.FileServerFS(fsys)}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	if st, err := fs.Stat(h.fsys, name); err != nil || (st.IsDir() && name != ".") {
		// hashed assets are cached by the browser; the shell never is
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, h.fsys, "index.html")
		return
	}
	h.files.ServeHTTP(w, r)
}

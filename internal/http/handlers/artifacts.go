package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DownloadArtifact serves a filesystem artifact behind a signed, expiring URL.
func (a *App) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	if a.Files == nil {
		a.error(w, http.StatusNotFound, "Not found")
		return
	}
	key := chi.URLParam(r, "*")
	q := r.URL.Query()
	path, err := a.Files.Verify(key, q.Get("expires"), q.Get("sig"))
	if err != nil {
		a.error(w, http.StatusForbidden, "Forbidden")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

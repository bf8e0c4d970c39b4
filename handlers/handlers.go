package handlers

import (
	"io/fs"
	"net/http"
)

// IndexHandler serves the chatbot page at GET /
func IndexHandler(page []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	}
}

// StaticHandler serves files from assets under prefix, e.g. /static/.
// Directory listings are not served.
func StaticHandler(prefix string, assets fs.FS) http.Handler {
	files := http.FileServer(http.FS(assets))
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

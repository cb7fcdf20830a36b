package server

import (
	"net/http"
	"strings"
)

// fileHandler serves the contents of the root directory. Directories
// without an index.html are listed.
func (s *Server) fileHandler() http.Handler {
	files := http.FileServer(http.Dir(s.rootDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodHead}, ", "))
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		files.ServeHTTP(w, r)
	})
}

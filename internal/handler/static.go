package handler

import (
	_ "embed"
	"net/http"

	"wschat/internal/pkg/logx"
)

//go:embed static/index.html
var defaultIndex []byte

// HandleIndex serves the chat page. An empty indexFile serves the embedded default page.
func HandleIndex(indexFile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if indexFile != "" {
			http.ServeFile(w, r, indexFile)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(defaultIndex); err != nil {
			logx.Warn("Failed to write index page", "error", err.Error())
		}
	}
}

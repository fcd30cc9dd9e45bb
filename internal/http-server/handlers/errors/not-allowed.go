package errors

import (
	"log/slog"
	"net/http"

	"rolelink/internal/http-server/pages"
)

func NotAllowed(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

package errors

import (
	"log/slog"
	"net/http"

	"rolelink/internal/http-server/pages"
)

func NotFound(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Error(w, r, http.StatusNotFound, "Requested page not found.")
	}
}

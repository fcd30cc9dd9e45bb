package join

import (
	"context"
	"log/slog"
	"net/http"

	"rolelink/entity"
	"rolelink/internal/http-server/pages"
	"rolelink/internal/redeem"
	"rolelink/lib/api/cont"
	"rolelink/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Core interface {
	Resolve(ctx context.Context, sid, linkID string) (*entity.Invitation, error)
	Authorize(ctx context.Context, sid string) (string, error)
	Callback(ctx context.Context, sid, state, code string) (*entity.Redemption, error)
}

func Landing(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages.Landing(w, r)
	}
}

// Resolve renders the confirmation page; every unusable link is a plain 404.
func Resolve(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "link_id")
		log := requestLogger(logger, r).With(sl.Link(linkID))

		inv, err := handler.Resolve(r.Context(), cont.GetSessionID(r.Context()), linkID)
		if err != nil {
			fail(w, r, log, http.StatusNotFound, err)
			return
		}
		pages.Confirm(w, r, inv)
	}
}

func Authorize(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := requestLogger(logger, r)

		url, err := handler.Authorize(r.Context(), cont.GetSessionID(r.Context()))
		if err != nil {
			fail(w, r, log, http.StatusBadRequest, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

func Callback(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := requestLogger(logger, r)
		query := r.URL.Query()
		if reason := query.Get("error"); reason != "" {
			log = log.With(slog.String("provider_error", reason))
		}

		result, err := handler.Callback(r.Context(),
			cont.GetSessionID(r.Context()),
			query.Get("state"),
			query.Get("code"),
		)
		if err != nil {
			fail(w, r, log, http.StatusBadRequest, err)
			return
		}
		log.Info("redemption completed",
			slog.String("username", result.Username),
			slog.Bool("returning", result.IsReturning),
		)
		pages.Success(w, r, result)
	}
}

func requestLogger(logger *slog.Logger, r *http.Request) *slog.Logger {
	return logger.With(
		sl.Module("http.handlers.join"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// fail shows one of two messages; invalidStatus is used for rejections, 500 otherwise.
func fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, invalidStatus int, err error) {
	if redeem.IsInvalid(err) {
		log.Info("link rejected", sl.Err(err))
		pages.Error(w, r, invalidStatus, pages.MessageInvalid)
		return
	}
	log.Error("redemption failed", sl.Err(err))
	pages.Error(w, r, http.StatusInternalServerError, pages.MessageTemporary)
}

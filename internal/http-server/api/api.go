package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"rolelink/internal/config"
	"rolelink/internal/http-server/handlers/errors"
	"rolelink/internal/http-server/handlers/join"
	"rolelink/internal/http-server/middleware/reqlog"
	"rolelink/internal/http-server/middleware/sessionid"
	"rolelink/internal/http-server/middleware/throttle"
	"rolelink/internal/http-server/middleware/timeout"
	"rolelink/internal/ratelimit"
	"rolelink/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestDeadline bounds a whole callback, which makes several provider calls.
const requestDeadline = 25 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	join.Core
}

// NewRouter wires middleware and routes; the limiter runs before any handler.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, limiter ratelimit.Limiter) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(reqlog.New(log, conf.RateLimit.TrustForwarded))
	router.Use(throttle.New(log, limiter, conf.RateLimit.TrustForwarded))
	router.Use(timeout.Timeout(requestDeadline))
	router.Use(sessionid.New(conf.Session))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/", join.Landing(log))
	router.Get("/join/{link_id}", join.Resolve(log, handler))
	router.Get("/authorize", join.Authorize(log, handler))
	router.Get("/callback", join.Callback(log, handler))

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, limiter ratelimit.Limiter) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      NewRouter(conf, log, handler, limiter),
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting redemption server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"path/filepath"
	"time"

	"rolelink/impl/core"
	"rolelink/internal/config"
	"rolelink/internal/database"
	"rolelink/internal/discord"
	"rolelink/internal/http-server/api"
	"rolelink/internal/notify"
	"rolelink/internal/ratelimit"
	"rolelink/internal/redeem"
	"rolelink/internal/session"
	"rolelink/lib/logger"
	"rolelink/lib/sl"
)

const logFileName = "rolelink-server.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting rolelink server", slog.String("config", *configPath), slog.String("env", conf.Env))

	if conf.Telegram.Enabled {
		tg, err := notify.NewTelegram(conf.Telegram, log)
		if err != nil {
			log.Error("telegram notifications disabled", sl.Err(err))
		} else {
			tg.Start()
			defer tg.Stop()
			log = logger.WithNotifier(log, tg, conf.Telegram.MinLevel)
		}
	}

	db, err := database.Open(conf)
	if err != nil {
		log.Error("database", sl.Err(err))
		return
	}
	defer db.Close()
	log.With(slog.String("driver", conf.Database.Driver)).Info("link store connected")

	var sessions session.Store
	switch conf.Session.Driver {
	case config.SessionRedis:
		rs, err := session.NewRedis(context.Background(), conf.Session)
		if err != nil {
			log.Error("redis sessions", sl.Err(err))
			return
		}
		defer rs.Close()
		sessions = rs
	default:
		sessions = session.NewMemory(conf.Session.TTL)
	}

	botSession, err := discord.NewSession(conf.Discord)
	if err != nil {
		log.Error("discord", sl.Err(err))
		return
	}
	client := discord.NewClient(conf.Discord, botSession, log)

	handler := core.New(sessions, redeem.New(db, client, log), client, log)

	limiter := ratelimit.NewSlidingWindow(conf.RateLimit.Window, conf.RateLimit.MaxRequests)
	go forgetLoop(limiter, conf.RateLimit.Window)

	if err = api.New(conf, log, handler, limiter); err != nil {
		log.Error("server stopped", sl.Err(err))
	}
}

// forgetLoop drops idle clients from the limiter.
func forgetLoop(limiter *ratelimit.SlidingWindow, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		limiter.Forget()
	}
}

package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"rolelink/bot"
	"rolelink/impl/auth"
	"rolelink/internal/config"
	"rolelink/internal/database"
	"rolelink/internal/discord"
	"rolelink/internal/issuer"
	"rolelink/internal/notify"
	"rolelink/lib/logger"
	"rolelink/lib/sl"

	"github.com/bwmarrin/discordgo"
)

const logFileName = "rolelink-bot.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting rolelink bot", slog.String("config", *configPath), slog.String("env", conf.Env))

	var tg *notify.Telegram
	if conf.Telegram.Enabled {
		var err error
		tg, err = notify.NewTelegram(conf.Telegram, log)
		if err != nil {
			log.Error("telegram notifications disabled", sl.Err(err))
			tg = nil
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

	session, err := discord.NewSession(conf.Discord)
	if err != nil {
		log.Error("discord", sl.Err(err))
		return
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	client := discord.NewClient(conf.Discord, session, log)

	premium := auth.New(client, conf.Issuer.HomeGuildID, conf.Issuer.PremiumRoleID, log)
	links := issuer.New(db, premium, conf.Issuer, log)

	discordBot := bot.New(session, links, client, conf.Issuer.ListPageSize, log)
	if tg != nil {
		discordBot.SetNotifier(tg)
	}
	if err = discordBot.Start(); err != nil {
		log.Error("starting bot", sl.Err(err))
		return
	}
	defer discordBot.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
}

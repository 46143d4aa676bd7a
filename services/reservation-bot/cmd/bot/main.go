package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/config"
	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/mq"
	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/obs"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/repository"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/service"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/transport/discord"
	thttp "github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/transport/http"
)

const serviceName = "reservation-bot"

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

type publisher interface {
	service.EventPublisher
	Close() error
}

func openPublisher(cfg config.App, logger *slog.Logger) publisher {
	if cfg.RabbitURL == "" {
		return mq.Nop{}
	}
	p, err := mq.NewPublisher(cfg.RabbitURL, cfg.ReservationExchange)
	if err != nil {
		// events are optional; the bot keeps working without a broker
		logger.Error("event publisher unavailable", "err", err)
		return mq.Nop{}
	}
	return p
}

func main() {
	cfg := must(config.Load())
	logger := obs.NewLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer := must(obs.InitTracer(ctx, serviceName, cfg.OTLPEndpoint, cfg.Env))
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	var connected atomic.Bool
	httpDone := make(chan struct{})
	go func() {
		defer close(httpDone)
		if err := thttp.Serve(ctx, cfg.HTTPAddr(), thttp.NewKeepAlive(connected.Load), logger); err != nil {
			logger.Error("keep-alive server stopped", "err", err)
		}
	}()

	if cfg.DiscordToken == "" {
		logger.Error("DISCORD_TOKEN is not set; not connecting to Discord")
		<-ctx.Done()
		<-httpDone
		return
	}

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	pub := openPublisher(cfg, logger)
	defer pub.Close()

	sess, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Error("create discord session", "err", err)
		os.Exit(1)
	}
	sess.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages

	svc := service.NewReservationSvc(store, discord.NewDispatcher(sess, cfg.PostChannelID), service.Options{
		MaxReservations: cfg.MaxReservations,
		Logger:          logger.With("component", "reservation-svc"),
		Publisher:       pub,
	})
	router := discord.NewRouter(sess, svc, discord.RouterConfig{
		InputChannelID: cfg.InputChannelID,
		PanelTrigger:   cfg.PanelTrigger,
	}, logger)
	router.Register(sess)
	sess.AddHandler(func(*discordgo.Session, *discordgo.Connect) { connected.Store(true) })
	sess.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) { connected.Store(false) })

	if err := sess.Open(); err != nil {
		logger.Error("open discord gateway", "err", err)
		os.Exit(1)
	}
	logger.Info("bot started", "store", cfg.StoreDriver, "post_channel", cfg.PostChannelID)

	<-ctx.Done()
	if err := sess.Close(); err != nil {
		logger.Warn("close discord session", "err", err)
	}
	<-httpDone
	logger.Info("bot stopped")
}

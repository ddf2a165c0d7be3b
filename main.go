package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbot-go/cogs"
	"slotbot-go/games/slots"
	"slotbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

type bot struct {
	cfg          *utils.Config
	log          *logrus.Entry
	orchestrator *slots.Orchestrator
	shop         *cogs.Shop
	economy      *cogs.Economy
	duels        *cogs.Duels
}

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("configuration error")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	log := logrus.NewEntry(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store := openStore(ctx, cfg, log)
	ledger := utils.NewLedger(store, log)

	db, err := utils.SetupDatabase(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Warn("secondary store unavailable, purchase limits run on the KV fallback")
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	b := &bot{
		cfg:          cfg,
		log:          log,
		orchestrator: slots.NewOrchestrator(ledger, db, log),
		shop:         cogs.NewShop(ledger, utils.NewPurchaseLimiter(ledger, db), log),
		economy:      cogs.NewEconomy(ledger, log),
		duels:        cogs.NewDuels(utils.NewDuelManager(ledger), log),
	}

	go b.startHealthServer()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is not set")
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.WithError(err).Fatal("failed to create Discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)

	if err := session.Open(); err != nil {
		log.WithError(err).Fatal("failed to open Discord connection")
	}
	defer session.Close()

	log.Info("bot is running, press CTRL+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	log.Info("shutting down")
}

// openStore connects to Redis, falling back to the in-process store so the
// bot still runs (without persistence) when Redis is unreachable.
func openStore(ctx context.Context, cfg *utils.Config, log *logrus.Entry) utils.KV {
	store, err := utils.NewRedisKV(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, state will not survive restarts")
		return utils.NewMemoryKV()
	}
	log.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	return store
}

func (b *bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.log.WithFields(logrus.Fields{
		"username": event.User.Username,
		"id":       event.User.ID,
	}).Info("logged in")

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{Name: "the reels spin 🎰", Type: discordgo.ActivityTypeWatching},
		},
		Status: "online",
	}); err != nil {
		b.log.WithError(err).Warn("failed to update presence")
	}

	if err := b.registerSlashCommands(s); err != nil {
		b.log.WithError(err).Error("failed to register slash commands")
	}
}

func (b *bot) registerSlashCommands(s *discordgo.Session) error {
	commands := []*discordgo.ApplicationCommand{
		slots.RegisterSpinCommand(),
		cogs.RegisterShopCommand(),
		cogs.RegisterBalanceCommand(),
		cogs.RegisterStatsCommand(),
		cogs.RegisterDuelCommand(),
	}

	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			return fmt.Errorf("failed to create command %s: %w", command.Name, err)
		}
	}

	b.log.WithField("count", len(commands)).Info("registered slash commands")
	return nil
}

func (b *bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "spin":
		slots.HandleSpinCommand(b.orchestrator, s, i)
	case "shop":
		cogs.HandleShopCommand(b.shop, s, i)
	case "balance":
		cogs.HandleBalanceCommand(b.economy, s, i)
	case "stats":
		cogs.HandleStatsCommand(b.economy, s, i)
	case "duel":
		cogs.HandleDuelCommand(b.duels, s, i)
	}
}

func (b *bot) startHealthServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"slot-machine-bot"}`))
	})

	addr := ":" + b.cfg.HealthPort
	b.log.WithField("addr", addr).Info("health server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		b.log.WithError(err).Error("health server stopped")
	}
}

// Package main is the entry point for the Zenox Go application.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/PancyStudios/ZenoxGo/internal/codes"
	"github.com/PancyStudios/ZenoxGo/internal/commands"
	"github.com/PancyStudios/ZenoxGo/internal/commands/dev"
	"github.com/PancyStudios/ZenoxGo/internal/commands/utils"
	"github.com/PancyStudios/ZenoxGo/internal/events"
	"github.com/PancyStudios/ZenoxGo/internal/l10n"
	"github.com/PancyStudios/ZenoxGo/internal/operator"
	"github.com/PancyStudios/ZenoxGo/internal/pipeline"
	"github.com/PancyStudios/ZenoxGo/internal/publisher"
	"github.com/PancyStudios/ZenoxGo/internal/redeem"
	"github.com/PancyStudios/ZenoxGo/internal/scheduler"
	"github.com/PancyStudios/ZenoxGo/internal/sources"
	"github.com/PancyStudios/ZenoxGo/internal/tasks"
	"github.com/PancyStudios/ZenoxGo/pkg/config"
	"github.com/PancyStudios/ZenoxGo/pkg/database"
	"github.com/PancyStudios/ZenoxGo/pkg/discord"
	"github.com/PancyStudios/ZenoxGo/pkg/errors"
	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/mqtt"
	"github.com/PancyStudios/ZenoxGo/pkg/web"
)

func main() {
	if err := run(); err != nil {
		logger.Critical(err.Error(), "Main")
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logger.Init("logs")
	defer log.Close()

	logger.System(fmt.Sprintf("Starting Zenox Go %s (%s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Working directory: %s", getCurrentDir()), "Main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	var discordClient *discord.ExtendedClient
	errHandler := errors.Init(cfg.ErrorWebhook, func() {
		stop()
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})
	defer errHandler.Stop()

	// Initialize database; it keeps reconnecting in the background
	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
	}
	defer func() {
		if db != nil {
			_ = db.Disconnect()
		}
	}()

	guildStore := database.NewGuildStore(db)
	codeRepo := database.NewCodeRepository(db, cfg.HoyoverseDBName)
	analytics := database.NewAnalyticsStore(db, cfg.AnalyticsDBName)
	codeStore := codes.NewStore(codeRepo)
	programs := codes.NewPrograms(codeRepo, codeStore)

	translator, err := l10n.Default()
	if err != nil {
		return fmt.Errorf("loading locales: %w", err)
	}

	schedules, err := config.LoadStreamSchedules(cfg.StreamConfigPath)
	if err != nil {
		return err
	}

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken, cfg.DevUsers)
	if err != nil {
		return fmt.Errorf("creating Discord client: %w", err)
	}

	// Initialize MQTT
	mqttClientID := "zenox"
	if !cfg.IsProd() {
		mqttClientID = "zenox_canary"
	}
	mqttClient := mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
	defer mqttClient.Destroy()

	reporter := operator.NewChannel(discordClient.Session, cfg.OperatorChannelID)
	var sessionOpts []redeem.SessionOption
	if cfg.HoyolabEmail != "" && cfg.HoyolabPassword != "" {
		sessionOpts = append(sessionOpts, redeem.WithLogin(redeem.NewLogin(cfg.HoyolabEmail, cfg.HoyolabPassword)))
	}
	session := redeem.NewEnvSession(cfg.EnvFile, cfg.HoyolabCookies, sessionOpts...)
	src := sources.NewClient()

	p := pipeline.New(pipeline.Deps{
		Codes:      codeStore,
		Programs:   programs,
		Wiki:       src,
		Stream:     src,
		Redeemer:   redeem.NewClient(session, cfg.HoyolabUIDs),
		Fanout:     publisher.New(publisher.NewDiscordSender(discordClient.Session), guildStore, translator),
		Recipients: guildStore,
		Analytics:  analytics,
		Reporter:   reporter,
		Schedules:  schedules,
		Translator: translator,
		Assets:     publisher.NewThumbnails(cfg.AssetsDir),
		Events:     mqttClient,
		Board:      reporter,
	})

	mqttClient.On("pipeline.status", func(map[string]interface{}) (interface{}, error) {
		return p.Snapshot(), nil
	})
	mqttClient.On("pipeline.resume", func(map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"resumed": p.Resume(), "state": p.StateName()}, nil
	})

	// Initialize web server
	webServer := web.Init(cfg.APIToken)
	web.SetupAPIRoutes(webServer, web.API{DB: db, Bot: discordClient, Pipeline: p})

	commands.RegisterAll(discordClient, commands.Deps{
		Utils: utils.Deps{DB: db, Pipeline: p},
		Dev:   dev.Deps{Pipeline: p, Schedules: schedules, Guilds: guildStore},
	})
	events.RegisterAll(discordClient, events.Deps{Guilds: guildStore, Reporter: reporter})

	// Start the bot
	if err := discordClient.Start(); err != nil {
		return fmt.Errorf("starting Discord client: %w", err)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error closing Discord session: %v", err), "Main")
		}
	}()

	gateway := tasks.NewStateGateway(discordClient.Session)
	cleanDB := tasks.NewCleanDB(guildStore, gateway, reporter)
	clientStats := tasks.NewClientStats(guildStore, gateway, reporter, mqttClient)

	if cfg.Schedule {
		var topGG scheduler.Runner
		if cfg.IsProd() && cfg.TopGGToken != "" {
			topGG = tasks.NewTopGG(gateway, reporter, cfg.TopGGBotID, cfg.TopGGToken).Run
		}
		sched, err := scheduler.New(scheduler.Jobs(p, cleanDB.Run, clientStats.Run, topGG))
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Error(fmt.Sprintf("Error stopping scheduler: %v", err), "Main")
			}
		}()
		logger.Info(fmt.Sprintf("Scheduled jobs: %v", sched.Names()), "Main")
	} else {
		logger.Warn("Scheduling disabled, jobs only run from dev commands", "Main")
	}

	logger.Success("Zenox Go started!", "Main")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webServer.Serve(gctx, cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.System("Shutting down Zenox Go...", "Main")
		return nil
	})
	return g.Wait()
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}

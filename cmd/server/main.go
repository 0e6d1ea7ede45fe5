// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/jsnphil/kentobot-api-sub000/internal/api/httpapi"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/metadata"
	"github.com/jsnphil/kentobot-api-sub000/internal/app/policy"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/config"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/eventbus"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/logger"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/spotify"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/storage"
)

var (
	app        = kingpin.New("kentobot-server", "Kentobot song request server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	pretty     = app.Flag("pretty", "Human-readable console log output").Bool()

	// list-rules command
	listRulesCmd = app.Command("list-rules", "List available content-policy rules and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if cmd == listRulesCmd.FullCommand() {
		printRules()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Pretty: *pretty,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	chain, err := buildPolicyChain(cfg)
	if err != nil {
		return fmt.Errorf("invalid rule config: %w", err)
	}

	provider, err := buildMetadataProvider(ctx, cfg)
	if err != nil {
		return err
	}

	// Storage wiring.
	var (
		streams  command.StreamRepository
		shuffles command.ShuffleRepository
	)
	if cfg.DevMode() {
		zlog.Warn().Msg("Dev mode: stream state is held in memory and lost on restart")
		streams = storage.NewMemoryStreamStore()
		shuffles = storage.NewMemoryShuffleStore()
	} else {
		client, err := storage.NewRedisClient(ctx, storage.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		streams = storage.NewRedisStreamStore(client)
		shuffles = storage.NewRedisShuffleStore(client)
	}

	// Event bus wiring.
	var bus command.EventBus
	if cfg.Events.Driver == "amqp" {
		publisher, err := eventbus.NewAMQPPublisher(eventbus.AMQPConfig{
			URI:       cfg.Events.AMQP.URI,
			QueueName: cfg.Events.AMQP.QueueName,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer publisher.Close()
		bus = publisher
	} else {
		bus = eventbus.NewMemoryBus()
	}

	service := command.NewService(streams, shuffles, bus, provider, chain, command.Config{
		BeanPool:          cfg.Bumps.BeanPool,
		ChannelPointsPool: cfg.Bumps.ChannelPointsPool,
		ShuffleWindow:     cfg.ShuffleWindow(),
		CooldownRounds:    cfg.Shuffle.CooldownRounds,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.NewServer(service, cfg).Router(),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}

// buildMetadataProvider creates the song metadata source. Dev mode
// without Spotify credentials falls back to synthetic metadata.
func buildMetadataProvider(ctx context.Context, cfg *config.Config) (metadata.Provider, error) {
	if cfg.Spotify.ClientID == "" && cfg.DevMode() {
		zlog.Warn().Msg("Dev mode: serving synthetic song metadata")
		return &metadata.StaticProvider{}, nil
	}

	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify client: %w", err)
	}
	return client, nil
}

// buildPolicyChain assembles the content-policy chain from config.
// Registered rules are created and configured from their settings; the
// region rule takes its region from the Spotify market.
func buildPolicyChain(cfg *config.Config) (*policy.Chain, error) {
	chain := policy.NewChain()
	registry := policy.GetRegistered()

	for name, ruleCfg := range cfg.Rules {
		if !ruleCfg.Enabled {
			continue
		}

		if name == "region_rule" {
			chain.Add(policy.NewRegionRule(cfg.Spotify.Market))
			continue
		}

		factory, exists := registry[name]
		if !exists {
			return nil, fmt.Errorf("unknown rule %q", name)
		}

		r := factory()
		if err := r.ValidateConfig(ruleCfg.Settings); err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
		chain.Add(r)
	}

	for _, r := range chain.Rules() {
		zlog.Info().Msgf("Content-policy rule enabled: %s", r.Name())
	}
	return chain, nil
}

// printRules prints available content-policy rules.
func printRules() {
	fmt.Println("Available Rules:")
	for _, factory := range policy.GetRegistered() {
		r := factory()
		codes := strings.Join(r.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", r.Name(), r.Description(), codes)
	}
	r := policy.NewRegionRule("")
	fmt.Printf("  %-30s - %s [codes: %s]\n", r.Name(), r.Description(), strings.Join(r.ReturnCodes(), ", "))
}

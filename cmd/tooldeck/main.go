package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/mktr-labs/tooldeck/internal/audit"
	"github.com/mktr-labs/tooldeck/internal/channels"
	"github.com/mktr-labs/tooldeck/internal/config"
	"github.com/mktr-labs/tooldeck/internal/gateway"
	"github.com/mktr-labs/tooldeck/internal/interfaces"
	"github.com/mktr-labs/tooldeck/internal/mail"
	"github.com/mktr-labs/tooldeck/internal/tools"
	"github.com/mktr-labs/tooldeck/internal/translate"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
)

// App holds all the runtime components
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Registry  *tools.Registry
	Runner    *tools.Runner
	Broker    *gateway.ConfirmBroker
	Journal   *audit.Store
	Gateway   *gateway.Server
	MQTT      *channels.MQTTChannel
}

func main() {
	os.Exit(run())
}

func run() int {
	// hash-password subcommand: print a bcrypt hash for the auth config
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		return hashPasswordCommand()
	}

	fs := flag.NewFlagSet("tooldeck", flag.ExitOnError)
	configPath := fs.String("config", "tooldeck.json", "Path to config file")
	showVersion := fs.Bool("version", false, "Show version")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Printf("Error parsing arguments: %v\n", err)
		return 1
	}

	if *showVersion {
		fmt.Printf("tooldeck v%s (built %s)\n", version, buildTime)
		fmt.Println("Email and translation tools for LLM hosts")
		return 0
	}

	app, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}

	printBanner(app)

	if err := serve(app); err != nil {
		app.Logger.Error("server error", "error", err)
		return 1
	}

	app.Logger.Info("tooldeck stopped")
	return 0
}

// setup initializes all application components
func setup(configPath string) (*App, error) {
	app := &App{}

	app.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	app.Logger.Info("starting tooldeck",
		"version", version,
		"config", configPath,
	)

	cfg, err := loadConfig(configPath, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app.Config = cfg

	// Recreate logger with config's log level
	app.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	// Confirmation broker: side-effecting tools block on an operator decision
	app.Broker = gateway.NewConfirmBroker(app.Logger)

	var confirmer interfaces.Confirmer = app.Broker
	if !cfg.Auth.Enabled {
		app.Logger.Warn("auth disabled; operator consoles connect without a token")
	}

	// Email toolset
	sender := mail.NewSMTPSender(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.From,
		cfg.SMTP.Password,
		cfg.SMTP.Encryption,
		time.Duration(cfg.SMTP.TimeoutSecs)*time.Second,
		app.Logger,
	)
	composer := mail.NewComposer(cfg.SMTP.From, cfg.SMTP.Signature)
	mailTools := mail.NewToolset(
		sender,
		confirmer,
		composer,
		time.Duration(cfg.Tools.ConfirmTimeoutSecs)*time.Second,
		app.Logger,
	)

	// Translation toolset
	deepl := translate.NewClient(
		cfg.DeepL.BaseURL,
		cfg.DeepL.APIKey,
		time.Duration(cfg.DeepL.TimeoutSecs)*time.Second,
		app.Logger,
	)
	translateTools := translate.NewToolset(deepl, app.Logger)

	// Registry and manifest
	app.Registry = tools.NewRegistry(app.Logger)
	if err := app.Registry.RegisterAll(mailTools.Tools()); err != nil {
		return nil, fmt.Errorf("register mail tools: %w", err)
	}
	if err := app.Registry.RegisterAll(translateTools.Tools()); err != nil {
		return nil, fmt.Errorf("register translate tools: %w", err)
	}

	manifest, err := tools.LoadManifest(cfg.Tools.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("load tool manifest: %w", err)
	}

	// Audit journal
	var recorder tools.Recorder
	if cfg.Audit.Enabled {
		journal, err := audit.Open(cfg.AuditPath(), app.Logger)
		if err != nil {
			return nil, fmt.Errorf("open audit journal: %w", err)
		}
		app.Journal = journal
		recorder = journal
	}

	app.Runner = tools.NewRunner(app.Registry, manifest, recorder, app.Logger)

	// HTTP gateway
	var journal gateway.AuditSource
	if app.Journal != nil {
		journal = app.Journal
	}
	app.Gateway = gateway.NewServer(cfg, app.Runner, app.Broker, journal, app.Logger)

	// MQTT invocation channel
	if cfg.MQTT.Enabled {
		app.MQTT = channels.NewMQTT(
			cfg.MQTT.Host,
			cfg.MQTT.Port,
			cfg.MQTT.Username,
			cfg.MQTT.Password,
			app.Runner,
			app.Logger,
		)
	}

	app.Logger.Info("tools registered", "count", app.Registry.Count())
	return app, nil
}

// loadConfig loads configuration from file or creates default
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no config found, creating default")
			cfg = config.DefaultConfig()
			if err := cfg.Save(path); err != nil {
				return nil, fmt.Errorf("save default config: %w", err)
			}
			logger.Info("default config created", "path", path)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// serve runs the gateway and optional MQTT channel until a signal arrives.
func serve(app *App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Gateway.Start(gctx)
	})

	if app.MQTT != nil {
		if err := app.MQTT.Start(gctx); err != nil {
			app.Logger.Warn("mqtt channel failed to start", "error", err)
		} else {
			g.Go(func() error {
				<-gctx.Done()
				return app.MQTT.Stop()
			})
		}
	}

	err := g.Wait()

	app.Broker.Close()
	if app.Journal != nil {
		if cerr := app.Journal.Close(); cerr != nil {
			app.Logger.Warn("failed to close audit journal", "error", cerr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// hashPasswordCommand reads a password from the terminal and prints its
// bcrypt hash for the auth.passwordHash config field.
func hashPasswordCommand() int {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		return 1
	}

	hash, err := gateway.HashPassword(string(pw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		return 1
	}

	fmt.Println(hash)
	return 0
}

// printBanner displays the startup banner
func printBanner(app *App) {
	fmt.Println()
	fmt.Printf("  tooldeck v%s\n", version)
	fmt.Printf("  API:   http://localhost:%d\n", app.Config.Server.Port)
	fmt.Printf("  Tools: %d registered\n", app.Registry.Count())
	if app.MQTT != nil {
		fmt.Printf("  MQTT:  %s:%d\n", app.Config.MQTT.Host, app.Config.MQTT.Port)
	}
	fmt.Println()
}

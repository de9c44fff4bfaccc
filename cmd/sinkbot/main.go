package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sinkbot/internal/bus"
	"sinkbot/internal/channel"
	"sinkbot/internal/command"
	"sinkbot/internal/config"
	"sinkbot/internal/content"
	"sinkbot/internal/dispatch"
	"sinkbot/internal/pipeline"
	"sinkbot/internal/transform"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "sinkbot",
		Short: "sinkbot: LINE echo/command bot",
		Long:  "sinkbot is a LINE Messaging API bot that echoes media, answers text commands, and serves the content it downloads.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.sinkbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and content directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(config.ExpandPath(cfg.Content.Dir), 0o755); err != nil {
				return err
			}
			if err := os.MkdirAll(config.ExpandPath(cfg.Content.StaticDir), 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			logger.Info("set LINE_CHANNEL_SECRET and LINE_CHANNEL_TOKEN, then run: sinkbot serve")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server and event dispatcher",
		Long:  "Starts the LINE webhook server, the event dispatcher, and the content retention sweeper. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := setupLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(cfg.Dispatch.BusBuffer, logger)

	line, err := channel.NewLine(cfg.Line.ChannelSecret, cfg.Line.ChannelToken, logger)
	if err != nil {
		return fmt.Errorf("line client: %w", err)
	}

	store, err := content.NewStore(content.Config{
		Dir:           cfg.Content.Dir,
		BaseURL:       cfg.General.BaseURL,
		LedgerPath:    cfg.Content.DBPath,
		Retention:     time.Duration(cfg.Content.RetentionHours) * time.Hour,
		SweepInterval: time.Duration(cfg.Content.SweepIntervalMinutes) * time.Minute,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("content store: %w", err)
	}
	defer store.Close()

	runner := transform.NewRunner(transform.Config{
		ConvertPath: cfg.Transform.ConvertPath,
		Timeout:     time.Duration(cfg.Transform.TimeoutSeconds) * time.Second,
		Logger:      logger,
	})

	dispatcher := dispatch.New(dispatch.Config{
		Bus: eventBus,
		Router: command.New(command.Config{
			Profiles: line,
			BaseURL:  cfg.General.BaseURL,
			Logger:   logger,
		}),
		Pipeline: pipeline.New(pipeline.Config{
			Platform:    line,
			Store:       store,
			Runner:      runner,
			Logger:      logger,
			MaxInFlight: cfg.Transform.MaxConcurrent,
		}),
		Platform:            line,
		Logger:              logger,
		MaxConcurrentEvents: cfg.Dispatch.MaxConcurrentEvents,
	})

	go dispatcher.Run(ctx)
	go store.RunSweeper(ctx)

	server := channel.NewServer(channel.ServerConfig{
		Port:        cfg.Line.Port,
		WebhookPath: cfg.Line.WebhookPath,
		ContentDir:  cfg.Content.Dir,
		StaticDir:   cfg.Content.StaticDir,
		Metrics:     cfg.Metrics.Enabled,
		MetricsPath: cfg.Metrics.Endpoint,
		Logger:      logger,
	}, line, eventBus)

	logger.Info("sinkbot started", "version", version, "base_url", cfg.General.BaseURL)

	err = server.Start(ctx)

	// Stop accepting events, then let in-flight handlers drain.
	eventBus.Close()
	logger.Info("shutdown complete")
	return err
}

// setupLogger reconfigures the global logger from the loaded config.
func setupLogger(cfg *config.Config) error {
	var level slog.Level
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", cfg.General.LogLevel)
	}

	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.baseUrl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. transform.maxConcurrent 8)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sinkbot " + version)
		},
	}
}

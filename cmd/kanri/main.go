// Command kanri runs the Discord administration bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/bdobrica/Kanri/common/version"
	"github.com/bdobrica/Kanri/internal/kanri/app"
	"github.com/bdobrica/Kanri/internal/kanri/approvals"
	"github.com/bdobrica/Kanri/internal/kanri/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func command() *cli.Command {
	var (
		cfg        app.Config
		logCfg     loggerConfig
		configPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "discord-token",
			Usage:       "Discord bot token",
			Category:    "Discord",
			Sources:     cli.EnvVars("DISCORD_TOKEN"),
			Destination: &cfg.DiscordToken,
		},
		&cli.StringFlag{
			Name:        "command-guild",
			Usage:       "register slash commands in this guild only (takes effect immediately)",
			Category:    "Discord",
			Sources:     cli.EnvVars("KANRI_COMMAND_GUILD"),
			Destination: &cfg.CommandGuildID,
		},
		&cli.StringFlag{
			Name:        "audit-channel",
			Usage:       "Discord channel that receives audit notices",
			Category:    "Discord",
			Sources:     cli.EnvVars("KANRI_AUDIT_CHANNEL"),
			Destination: &cfg.AuditChannelID,
		},
		&cli.StringFlag{
			Name:        "model-token",
			Usage:       "API token for the hosted model",
			Category:    "Model",
			Sources:     cli.EnvVars("KANRI_MODEL_TOKEN", "HUGGINGFACE_TOKEN"),
			Destination: &cfg.ModelToken,
		},
		&cli.StringFlag{
			Name:        "model-provider",
			Usage:       "model provider: huggingface or openai",
			Category:    "Model",
			Sources:     cli.EnvVars("KANRI_MODEL_PROVIDER"),
			Destination: &cfg.ModelProvider,
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "model name",
			Category:    "Model",
			Sources:     cli.EnvVars("KANRI_MODEL"),
			Destination: &cfg.Model,
		},
		&cli.StringFlag{
			Name:        "model-endpoint",
			Usage:       "override the provider base URL",
			Category:    "Model",
			Sources:     cli.EnvVars("KANRI_MODEL_ENDPOINT"),
			Destination: &cfg.ModelEndpoint,
		},
		&cli.BoolFlag{
			Name:        "repair-json",
			Usage:       "attempt to repair malformed JSON from the model",
			Category:    "Model",
			Sources:     cli.EnvVars("KANRI_REPAIR_JSON"),
			Destination: &cfg.RepairJSON,
		},
		&cli.DurationFlag{
			Name:        "inference-timeout",
			Usage:       "maximum time to wait for the model",
			Category:    "Model",
			Value:       pipeline.DefaultTimeout,
			Sources:     cli.EnvVars("KANRI_INFERENCE_TIMEOUT"),
			Destination: &cfg.InferenceTimeout,
		},
		&cli.DurationFlag{
			Name:        "confirm-ttl",
			Usage:       "how long a destructive-action confirmation stays valid",
			Value:       approvals.DefaultTTL,
			Sources:     cli.EnvVars("KANRI_CONFIRM_TTL"),
			Destination: &cfg.ConfirmTTL,
		},
		&cli.StringFlag{
			Name:        "db",
			Usage:       "SQLite database path for the audit log",
			Value:       app.DefaultDatabasePath,
			Sources:     cli.EnvVars("KANRI_DB", "DATABASE_PATH"),
			Destination: &cfg.DatabasePath,
		},
		&cli.StringFlag{
			Name:        "http-addr",
			Usage:       `liveness and metrics listener ("off" disables it)`,
			Value:       app.DefaultHTTPAddr,
			Sources:     cli.EnvVars("KANRI_HTTP_ADDR"),
			Destination: &cfg.HTTPAddr,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "optional YAML configuration file",
			Sources:     cli.EnvVars("KANRI_CONFIG"),
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "debug, info, warn or error",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("KANRI_LOG_LEVEL"),
			Destination: &logCfg.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "console or json",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("KANRI_LOG_FORMAT"),
			Destination: &logCfg.format,
		},
		&cli.BoolFlag{
			Name:        "log-color",
			Usage:       "colourise console logs",
			Category:    "Logging",
			Value:       true,
			Sources:     cli.EnvVars("KANRI_LOG_COLOR"),
			Destination: &logCfg.color,
		},
	}

	return &cli.Command{
		Name:    "kanri",
		Usage:   "administer Discord servers with natural-language instructions",
		Version: version.Version,
		Flags:   flags,
		Action: func(ctx context.Context, _ *cli.Command) error {
			logger, err := newLogger(logCfg, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			logger.Info("starting kanri", "version", version.Version, "commit", version.GitCommit, "logger", logCfg)

			fc, err := app.LoadFile(configPath)
			if err != nil {
				return err
			}
			fc.Apply(&cfg)
			cfg.Logger = logger

			kanri, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize kanri: %w", err)
			}
			defer func() {
				if err := kanri.Close(); err != nil {
					logger.Warn("closing database", "err", err)
				}
			}()

			start := time.Now()
			err = kanri.Run(ctx)
			logger.Info("stopped", "uptime", time.Since(start).Round(time.Second))
			return err
		},
	}
}

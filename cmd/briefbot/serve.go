package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/clobrano/briefbot/internal/bot"
	"github.com/clobrano/briefbot/internal/config"
	"github.com/clobrano/briefbot/internal/finance"
	"github.com/clobrano/briefbot/internal/llm"
	"github.com/clobrano/briefbot/internal/metrics"
	"github.com/clobrano/briefbot/internal/notifier"
	"github.com/clobrano/briefbot/internal/processor"
	"github.com/clobrano/briefbot/internal/watcher"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if err := cfg.ValidateTransport(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Msg("starting briefbot")

	m := metrics.New()

	pipeline, err := processor.NewFromConfig(cfg, m)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("LLM provider initialized")

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized on Telegram")

	ntfy := notifier.New(cfg.NtfyServer, cfg.NtfyTopic)
	if ntfy != nil {
		log.Info().Str("topic", cfg.NtfyTopic).Msg("notifier initialized")
	}

	b := bot.New(bot.Options{
		Sender:          api,
		Loader:          pipeline,
		Assistant:       llm.NewAssistant(provider),
		Quoter:          finance.NewClient(cfg.Finance.BaseURL, cfg.Finance.Timeout),
		AllowList:       cfg.Telegram.Whitelist,
		DeveloperChatID: cfg.Telegram.DeveloperChatID,
		MaxConcurrent:   cfg.Telegram.MaxConcurrent,
		Notifier:        ntfy,
		Metrics:         m,
	})

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if w := watchConfig(b); w != nil {
		defer w.Stop()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	if err := ntfy.SendStarted(ctx, version); err != nil {
		log.Warn().Err(err).Msg("failed to send start notification")
	}

	log.Info().Msg("briefbot is running, press Ctrl+C to stop")
	b.Run(ctx, updates)
	log.Info().Msg("briefbot stopped")

	return nil
}

func startMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

// watchConfig reloads the allow-list when the config file changes. It
// returns nil when there is no config file to watch.
func watchConfig(b *bot.Bot) *watcher.Watcher {
	if cfgFile == "" {
		return nil
	}
	if _, err := os.Stat(cfgFile); err != nil {
		log.Debug().Str("path", cfgFile).Msg("no config file, allow-list reload disabled")
		return nil
	}

	w, err := watcher.New(cfgFile, config.Load, func(next *config.Config) {
		if len(next.Telegram.Whitelist) == 0 {
			log.Warn().Msg("reloaded config has an empty allow-list, keeping the previous one")
			return
		}
		b.SetAllowList(next.Telegram.Whitelist)
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to create config watcher")
		return nil
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start config watcher")
		return nil
	}
	log.Info().Str("path", cfgFile).Msg("watching config file")
	return w
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/adapter/llm"
	"github.com/euskoog/openai-assistants-link/internal/config"
	"github.com/euskoog/openai-assistants-link/internal/logger"
	"github.com/euskoog/openai-assistants-link/internal/repository"
	"github.com/euskoog/openai-assistants-link/internal/service"
	httpserver "github.com/euskoog/openai-assistants-link/internal/transport/http"
	"github.com/euskoog/openai-assistants-link/policy"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, level, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg.Watch(func(next *config.Config, err error) {
				if err != nil {
					log.Warn("config reload failed", zap.Error(err))
					return
				}
				lvl, err := logger.ParseLevel(next.LogLevel)
				if err != nil {
					log.Warn("ignoring invalid log level", zap.String("log_level", next.LogLevel))
					return
				}
				level.SetLevel(lvl)
				log.Info("log level updated", zap.Stringer("level", lvl))
			})

			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("starting assistants link",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("mode", cfg.AppMode),
		zap.String("prefix", cfg.CorePrefix()),
		zap.String("openai_api_key", logger.Redact(cfg.OpenAIAPIKey)),
	)

	svc, closeStore, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	e := httpserver.NewServer(svc, cfg, log)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(httpserver.Addr(cfg.HTTPPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("api started", zap.String("addr", httpserver.Addr(cfg.HTTPPort)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown gracefully", zap.Error(err))
	}
	log.Info("stopped")
	return nil
}

// buildService opens the store and wires the hosted clients and the policy.
func buildService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*service.Service, func(), error) {
	store, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}

	engine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	agentClient := agentclient.New(cfg.AppMode, agentclient.Options{
		BaseURL:      cfg.OpenAIBaseURL,
		APIKey:       cfg.OpenAIAPIKey,
		Timeout:      cfg.AgentTimeout(),
		PollInterval: cfg.AgentPollInterval(),
	}, log)
	llmClient := llm.NewLLMClient(cfg.AppMode, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.AgentTimeout(), log)

	return service.New(store, agentClient, llmClient, cfg, engine, log), closeStore, nil
}

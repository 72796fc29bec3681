// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"conversation-store/internal/config"
	"conversation-store/internal/domain/ports/adapter"
	"conversation-store/internal/domain/ports/repository"
	aiAdapters "conversation-store/internal/infra/adapters/ai"
	uploadAdapters "conversation-store/internal/infra/adapters/upload"
	"conversation-store/internal/infra/api"
	pg "conversation-store/internal/infra/db/postgres"
	"conversation-store/internal/infra/idgen"
	"conversation-store/internal/infra/logging"
	"conversation-store/internal/infra/memory"
	"conversation-store/internal/infra/metrics"
	"conversation-store/internal/infra/persist"
	red "conversation-store/internal/infra/redis"
	"conversation-store/internal/infra/worker"
	"conversation-store/internal/usecase"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "", "path to YAML config file (in-process defaults when empty)")
	devMode := flag.Bool("dev", false, "enable developer mode (verbose, unredacted logs)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*cfgPath, *devMode); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	cfg.Runtime.Dev = *devMode

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, cfg.Store.Backend, cfg.Responder.Provider)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Storage backend ----
	kv, closeKV, err := openKVStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("storage backend")
	}
	defer closeKV()

	var repo repository.ConversationRepository = persist.NewSnapshotRepository(kv, cfg.Store.Key, logger)
	var writeBehind *persist.WriteBehind
	if cfg.Store.WriteDelay > 0 {
		writeBehind = persist.NewWriteBehind(repo, cfg.Store.WriteDelay, logger)
		repo = writeBehind
	}

	// ---- Store ----
	store, err := usecase.NewConversationStore(ctx, repo, idgen.New(nil), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("conversation store")
	}

	// ---- Responder ----
	responder, err := newResponder(ctx, cfg.Responder)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Responder.Provider).Msg("responder")
	}
	responder = aiAdapters.NewLimitedResponder(responder, cfg.Responder.ConcurrentLimit)
	logger.Info().Str("provider", responder.Name()).Str("model", cfg.Responder.Model).Msg("responder ready")

	pool := worker.NewPool(cfg.Responder.Workers, logger)
	pool.Start(ctx)

	replies := usecase.NewReplyScheduler(store, responder, pool, usecase.ReplyConfig{
		Delay:   cfg.Responder.Delay,
		Timeout: cfg.Responder.Timeout,
	}, logger)

	// ---- Uploader ----
	var uploader adapter.Uploader = uploadAdapters.NewNoopUploader(logger)
	if cfg.Upload.URL != "" {
		u, err := uploadAdapters.NewHTTPUploader(cfg.Upload.URL, cfg.Upload.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("uploader")
		}
		uploader = u
	}

	chatUC := usecase.NewChatUseCase(store, replies, uploader, logger, cfg.Runtime.Dev)

	// ---- HTTP ----
	srv := api.NewServer(store, chatUC, api.Options{RequestTimeout: cfg.Upload.Timeout + 5*time.Second}, logger)
	go func() {
		if err := srv.Start(cfg.HTTP.Port); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	replies.Close()
	pool.Stop()
	replies.Wait()
	if writeBehind != nil {
		if err := writeBehind.Close(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("final save")
		}
	}
	cancel()
	logger.Info().Msg("bye")
}

func openKVStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.KVStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("storage: redis")
		return red.NewKVStore(client, "conversation-store"), func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
		if err != nil {
			return nil, nil, err
		}
		kv := pg.NewKVStore(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("storage: postgres")
		return kv, pool.Close, nil
	case config.BackendMemory:
		logger.Warn().Msg("storage: memory (conversations are lost on exit)")
		return memory.NewKVStore(), func() {}, nil
	}
	return nil, nil, errors.New("unknown store backend " + cfg.Store.Backend)
}

func newResponder(ctx context.Context, rc config.ResponderConfig) (adapter.Responder, error) {
	switch rc.Provider {
	case config.ProviderOpenAI:
		trimmer := aiAdapters.NewHistoryTrimmer(aiAdapters.NewTiktokenCounter(), rc.Model, rc.MaxContextTokens)
		return aiAdapters.NewOpenAIResponder(rc.OpenAIKey, rc.OpenAIBaseURL, rc.Model, trimmer)
	case config.ProviderGemini:
		trimmer := aiAdapters.NewHistoryTrimmer(aiAdapters.NewTiktokenCounter(), rc.Model, rc.MaxContextTokens)
		return aiAdapters.NewGeminiResponder(ctx, rc.GeminiKey, rc.GeminiURL, rc.Model, trimmer)
	default:
		return aiAdapters.NewSimulatedResponder(), nil
	}
}

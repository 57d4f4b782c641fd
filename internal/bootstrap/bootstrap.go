package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowbit-labs/intake-agent/internal/agents/emailagent"
	"github.com/flowbit-labs/intake-agent/internal/agents/jsonagent"
	"github.com/flowbit-labs/intake-agent/internal/agents/pdfagent"
	"github.com/flowbit-labs/intake-agent/internal/config"
	"github.com/flowbit-labs/intake-agent/internal/core/classify"
	"github.com/flowbit-labs/intake-agent/internal/core/ports"
	"github.com/flowbit-labs/intake-agent/internal/core/usecase"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/llm/ollama"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/memory/redis"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/pdftext"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/queue/nats"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/resilience"
	"github.com/flowbit-labs/intake-agent/internal/infrastructure/storage/localfs"
	"github.com/flowbit-labs/intake-agent/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Memory *redis.Store
	Queue  *nats.Queue

	IntakeUC ports.IntakeService
	Sessions ports.SessionReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	memory := redis.Open(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, time.Duration(cfg.SessionTTLSeconds)*time.Second)
	if err := memory.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	var executor *resilience.Executor
	if cfg.ResilienceEnabled {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	generator := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, executor)

	jsonAgent := jsonagent.New(memory, logger)
	emailAgent := emailagent.New(memory, generator, logger)
	pdfAgent := pdfagent.New(memory, pdftext.New(), generator, logger)

	classifier := classify.New()
	router := usecase.NewAgentRouter(jsonAgent, emailAgent, pdfAgent)
	intakeUC := usecase.NewIntakeUseCase(classifier, router, memory, storage, queue, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Memory: memory,
		Queue:  queue,

		IntakeUC: intakeUC,
		Sessions: memory,

		closeFn: func() {
			queue.Close()
			_ = memory.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

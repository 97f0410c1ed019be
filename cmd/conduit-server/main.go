// Conduit Server — API и движок выполнения workflow в одном процессе.
//
// Server:
//   - Принимает HTTP-запросы на управление workflows, jobs и schedules
//   - Выполняет jobs in-process (планирование узлов, retry, ветвление)
//   - Забирает PENDING jobs из БД через polling
//   - Публикует события жизненного цикла в RabbitMQ
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

	"github.com/shaiso/Conduit/internal/api"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/engine"
	"github.com/shaiso/Conduit/internal/executor"
	"github.com/shaiso/Conduit/internal/model"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/repo"
	"github.com/shaiso/Conduit/internal/sandbox"
	"github.com/shaiso/Conduit/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conduit-server")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	jobRepo := repo.NewJobRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ: без брокера события не публикуются, выполнение не страдает
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events disabled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)

		// Аудит-трейл: дублируем события jobs в лог сервера
		if os.Getenv("EVENT_AUDIT_LOG") == "1" {
			consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
				Queue: string(mq.QueueJobEventsAudit),
				Handler: func(_ context.Context, event *domain.Event) error {
					logger.Info("job event",
						"event_type", event.Type,
						"job_id", event.JobID,
						"node_id", event.NodeID,
					)
					return nil
				},
			})
			go func() {
				if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("audit consumer stopped", "error", err)
				}
			}()
		}
	}

	// Executors: LLM через OpenAI-совместимый API, code через sandbox runner
	invoker := model.NewOpenAIInvoker(
		os.Getenv("OPENAI_API_KEY"),
		os.Getenv("OPENAI_MODEL"),
		os.Getenv("OPENAI_BASE_URL"),
	)

	sandboxURL := os.Getenv("SANDBOX_URL")
	if sandboxURL == "" {
		sandboxURL = "http://localhost:8090"
	}
	runner := sandbox.NewClient(sandboxURL)

	registry := executor.DefaultRegistry(invoker, runner)

	// Движок
	engCfg := engine.Config{
		Workflows: workflowRepo,
		Jobs:      jobRepo,
		Registry:  registry,
		Secrets:   secretsFromEnv(),
		Logger:    logger,
	}
	if publisher != nil {
		// nil *mq.Publisher в интерфейсном поле не считался бы nil
		engCfg.Publisher = publisher
	}
	eng := engine.New(engCfg)
	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	// API handler
	handler := api.NewHandler(api.Config{
		WorkflowRepo: workflowRepo,
		JobRepo:      jobRepo,
		ScheduleRepo: scheduleRepo,
		Engine:       eng,
		Registry:     registry,
		Logger:       logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", telemetry.MetricsHandler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Дожидаемся активных jobs
	eng.Stop()

	logger.Info("stopped")
}

// secretsFromEnv собирает секреты для выражений {{ secrets.* }}
// из переменных окружения с префиксом CONDUIT_SECRET_.
func secretsFromEnv() map[string]string {
	const prefix = "CONDUIT_SECRET_"

	secrets := make(map[string]string)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key, found := strings.CutPrefix(name, prefix)
		if !found || key == "" {
			continue
		}
		secrets[key] = value
	}
	return secrets
}

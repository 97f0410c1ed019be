// Conduit Scheduler — создаёт jobs по расписаниям.
//
// Scheduler:
//   - Раз в секунду проверяет due schedules (enabled, next_due_at <= now)
//   - Создаёт PENDING jobs с idempotency key "{schedule_id}_{next_due_at}"
//   - Обновляет next_due_at по cron-выражению или интервалу
//
// Leader election через pg_try_advisory_lock: при нескольких репликах
// тики выполняет только одна.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Conduit/internal/repo"
	"github.com/shaiso/Conduit/internal/scheduler"
	"github.com/shaiso/Conduit/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting conduit-scheduler")

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

	sched := scheduler.New(scheduler.Config{
		ScheduleRepo: repo.NewScheduleRepo(pool),
		JobRepo:      repo.NewJobRepo(pool),
		WorkflowRepo: repo.NewWorkflowRepo(pool),
		Logger:       logger,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", telemetry.MetricsHandler())

	// scheduler loop
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером (или подтвердить лидерство)
				if !hasLock {
					var ok bool
					if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("advisory lock failed", "error", err)
						continue
					}
					hasLock = ok
				}

				if !hasLock {
					// не лидер — пропускаем тик
					continue
				}

				if err := sched.Tick(ctx); err != nil {
					logger.Error("scheduler tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// serve
	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("conduit-scheduler stopped")
}

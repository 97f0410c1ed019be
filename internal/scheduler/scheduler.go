package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/repo"
	"github.com/shaiso/Conduit/internal/telemetry"
)

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	scheduleRepo *repo.ScheduleRepo
	jobRepo      *repo.JobRepo
	workflowRepo *repo.WorkflowRepo
	logger       *slog.Logger
	batchSize    int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo *repo.ScheduleRepo
	JobRepo      *repo.JobRepo
	WorkflowRepo *repo.WorkflowRepo
	Logger       *slog.Logger
	BatchSize    int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		scheduleRepo: cfg.ScheduleRepo,
		jobRepo:      cfg.JobRepo,
		workflowRepo: cfg.WorkflowRepo,
		logger:       cfg.Logger,
		batchSize:    batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule создаёт PENDING job
// 3. Обновляет next_due_at
//
// Созданные jobs подхватывает движок через polling.
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.scheduleRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		jobCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if jobCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"jobs_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если job был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// 1. Проверяем, что workflow существует
	if _, err := s.workflowRepo.Get(ctx, sched.WorkflowID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("workflow not found for schedule, skipping",
				"schedule_id", sched.ID,
				"workflow_id", sched.WorkflowID,
			)
			// Не возвращаем ошибку — просто пропускаем
			return false, nil
		}
		return false, fmt.Errorf("get workflow: %w", err)
	}

	// 2. Формируем idempotency key: "{schedule_id}_{next_due_at_unix}"
	// Это гарантирует, что для одного schedule и конкретного времени
	// будет создан только один job
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	// 3. Проверяем, не создан ли уже job (idempotency)
	existingJob, err := s.jobRepo.GetByIdempotencyKey(ctx, sched.WorkflowID, idempKey)
	if err != nil {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var jobCreated bool
	var jobID uuid.UUID

	if existingJob != nil {
		// Job уже существует — просто обновляем next_due_at
		s.logger.Debug("job already exists (idempotency)",
			"schedule_id", sched.ID,
			"job_id", existingJob.ID,
			"idempotency_key", idempKey,
		)
		jobID = existingJob.ID
		jobCreated = false
	} else {
		// 4. Создаём новый PENDING job
		job := &domain.Job{
			ID:             uuid.New(),
			WorkflowID:     sched.WorkflowID,
			Status:         domain.JobStatusPending,
			Input:          sched.Input,
			IdempotencyKey: idempKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := s.jobRepo.Create(ctx, job); err != nil {
			return false, fmt.Errorf("create job: %w", err)
		}

		telemetry.ScheduledJobs.Inc()

		s.logger.Info("created job from schedule",
			"job_id", job.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"workflow_id", sched.WorkflowID,
		)

		jobID = job.ID
		jobCreated = true
	}

	// 5. Вычисляем следующее время запуска
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due, leaving schedule as is",
			"schedule_id", sched.ID,
			"error", err,
		)
		// Schedule некорректный — лучше не трогать next_due_at
		return jobCreated, nil
	}

	// 6. Обновляем schedule
	sched.RecordJob(jobID, nextDue)
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return jobCreated, fmt.Errorf("update schedule: %w", err)
	}

	return jobCreated, nil
}

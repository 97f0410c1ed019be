package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/executor"
	"github.com/shaiso/Conduit/internal/graph"
	"github.com/shaiso/Conduit/internal/telemetry"
)

// Значения конфигурации по умолчанию.
const (
	defaultNodeConcurrency = 4
	defaultMaxAttempts     = 3
	defaultRetryBackoff    = 500 * time.Millisecond
	defaultPollInterval    = 10 * time.Second
	defaultBatchSize       = 100
)

// Engine выполняет jobs.
//
// На каждый job запускается горутина-планировщик; готовые узлы
// отправляются executor'ам параллельно с лимитом на job.
// Помимо прямых Execute движок периодически забирает PENDING jobs
// из хранилища (jobs от scheduler'а и оставшиеся после рестарта).
type Engine struct {
	workflows WorkflowStore
	jobs      JobStore
	registry  *executor.Registry
	publisher EventPublisher

	// secrets — секреты окружения, доступные выражениям {{ secrets.* }}.
	secrets map[string]string

	// activeJobs — jobs в обработке (jobID → state).
	activeJobs map[uuid.UUID]*jobState
	mu         sync.RWMutex

	nodeConcurrency int
	maxAttempts     int
	retryBackoff    time.Duration
	nodeTimeout     time.Duration
	pollInterval    time.Duration
	batchSize       int

	logger     *slog.Logger
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Engine.
type Config struct {
	Workflows WorkflowStore
	Jobs      JobStore
	Registry  *executor.Registry
	Publisher EventPublisher

	// Secrets — секреты, доступные выражениям узлов.
	Secrets map[string]string

	// NodeConcurrency — лимит параллельных узлов на job (default: 4).
	NodeConcurrency int

	// MaxAttempts — попыток на узел при transient ошибках (default: 3).
	MaxAttempts int

	// RetryBackoff — базовая задержка retry, удваивается (default: 500ms).
	RetryBackoff time.Duration

	// NodeTimeout — лимит времени узла. 0 — лимиты по умолчанию
	// каждого типа узла.
	NodeTimeout time.Duration

	// PollInterval — интервал забора PENDING jobs (default: 10s).
	PollInterval time.Duration

	// BatchSize — jobs за один poll (default: 100).
	BatchSize int

	Logger *slog.Logger
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	nodeConcurrency := cfg.NodeConcurrency
	if nodeConcurrency <= 0 {
		nodeConcurrency = defaultNodeConcurrency
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		workflows:       cfg.Workflows,
		jobs:            cfg.Jobs,
		registry:        cfg.Registry,
		publisher:       cfg.Publisher,
		secrets:         cfg.Secrets,
		activeJobs:      make(map[uuid.UUID]*jobState),
		nodeConcurrency: nodeConcurrency,
		maxAttempts:     maxAttempts,
		retryBackoff:    retryBackoff,
		nodeTimeout:     cfg.NodeTimeout,
		pollInterval:    pollInterval,
		batchSize:       batchSize,
		logger:          logger,
	}
}

// Start запускает движок: polling горутину для PENDING jobs.
func (e *Engine) Start(ctx context.Context) error {
	e.baseCtx, e.cancelFunc = context.WithCancel(ctx)

	e.logger.Info("starting engine",
		"node_concurrency", e.nodeConcurrency,
		"max_attempts", e.maxAttempts,
		"poll_interval", e.pollInterval,
	)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(e.baseCtx)
	}()

	return nil
}

// Stop останавливает движок и ждёт завершения горутин.
func (e *Engine) Stop() {
	e.stoppedMu.Lock()
	e.stopped = true
	e.stoppedMu.Unlock()

	e.logger.Info("stopping engine...")

	if e.cancelFunc != nil {
		e.cancelFunc()
	}
	e.wg.Wait()

	e.logger.Info("engine stopped")
}

// IsStopped проверяет, остановлен ли движок.
func (e *Engine) IsStopped() bool {
	e.stoppedMu.RLock()
	defer e.stoppedMu.RUnlock()
	return e.stopped
}

// Execute запускает workflow и возвращает созданный job.
//
// Job создаётся в статусе RUNNING и сразу передаётся
// горутине-планировщику; вызов не ждёт завершения.
// При совпадении idempotencyKey возвращается существующий job
// без создания нового.
func (e *Engine) Execute(ctx context.Context, workflowID uuid.UUID, input map[string]any, idempotencyKey string) (*domain.Job, error) {
	if e.IsStopped() {
		return nil, ErrEngineStopped
	}

	wf, err := e.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}

	if idempotencyKey != "" {
		existing, err := e.jobs.GetByIdempotencyKey(ctx, workflowID, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := time.Now()
	job := &domain.Job{
		ID:             uuid.New(),
		WorkflowID:     workflowID,
		Input:          input,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	job.MarkRunning()

	if err := e.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := e.launch(job, wf); err != nil {
		job.MarkFailed("", err.Error())
		if uerr := e.jobs.Update(ctx, job); uerr != nil {
			e.logger.Error("failed to record launch failure", "job_id", job.ID, "error", uerr)
		}
		return nil, err
	}
	return job, nil
}

// Cancel отменяет job.
//
// Активный job получает сигнал отмены: уже отправленные узлы
// дорабатывают, новые не стартуют. PENDING job отменяется
// атомарным переходом в хранилище.
func (e *Engine) Cancel(ctx context.Context, jobID uuid.UUID) error {
	if state := e.activeJob(jobID); state != nil {
		state.requestCancel()
		return nil
	}

	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status.IsTerminal() {
		return ErrJobFinished
	}

	if job.Status == domain.JobStatusPending {
		ok, err := e.jobs.CancelPending(ctx, jobID)
		if err != nil {
			return fmt.Errorf("cancel pending job: %w", err)
		}
		if ok {
			e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventJobCancelled))
			return nil
		}
	}

	// Между Get и CAS job мог перейти в работу
	if state := e.activeJob(jobID); state != nil {
		state.requestCancel()
		return nil
	}
	return ErrJobNotManaged
}

// launch регистрирует job как активный и запускает планировщик.
func (e *Engine) launch(job *domain.Job, wf *domain.Workflow) error {
	dag, err := graph.Build(wf)
	if err != nil {
		return fmt.Errorf("build dag: %w", err)
	}

	state := newJobState(job, dag, e.secrets)
	if err := e.addActiveJob(state); err != nil {
		return err
	}

	telemetry.JobsStarted.Inc()
	telemetry.ActiveJobs.Inc()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer telemetry.ActiveJobs.Dec()
		defer e.removeActiveJob(job.ID)
		e.runJob(e.runCtx(), state, wf)
	}()

	return nil
}

// runCtx возвращает контекст для горутин jobs.
// До Start движок работает от Background (упрощает тесты Execute).
func (e *Engine) runCtx() context.Context {
	if e.baseCtx != nil {
		return e.baseCtx
	}
	return context.Background()
}

// pollLoop периодически забирает PENDING jobs из хранилища.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем jobs, созданные пока движок не работал
	e.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll выполняет один цикл забора PENDING jobs.
func (e *Engine) poll(ctx context.Context) {
	jobs, err := e.jobs.ClaimPending(ctx, e.batchSize)
	if err != nil {
		e.logger.Error("failed to claim pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	e.logger.Debug("poll claimed pending jobs", "count", len(jobs))

	for i := range jobs {
		job := &jobs[i]

		wf, err := e.workflows.Get(ctx, job.WorkflowID)
		if err != nil {
			e.logger.Error("workflow missing for claimed job",
				"job_id", job.ID,
				"workflow_id", job.WorkflowID,
				"error", err,
			)
			job.MarkFailed("", fmt.Sprintf("workflow %s not found", job.WorkflowID))
			if uerr := e.jobs.Update(ctx, job); uerr != nil {
				e.logger.Error("failed to fail orphan job", "job_id", job.ID, "error", uerr)
			}
			continue
		}

		if err := e.launch(job, wf); err != nil {
			e.logger.Error("failed to launch claimed job", "job_id", job.ID, "error", err)
		}
	}
}

// activeJob возвращает состояние активного job или nil.
func (e *Engine) activeJob(jobID uuid.UUID) *jobState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeJobs[jobID]
}

func (e *Engine) addActiveJob(state *jobState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.activeJobs[state.job.ID]; exists {
		return ErrJobAlreadyActive
	}
	e.activeJobs[state.job.ID] = state
	return nil
}

func (e *Engine) removeActiveJob(jobID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.activeJobs, jobID)
}

// ActiveJobsCount возвращает количество jobs в обработке.
func (e *Engine) ActiveJobsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.activeJobs)
}

// publish отправляет событие fire-and-forget.
func (e *Engine) publish(ctx context.Context, event *domain.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		telemetry.EventPublishErrors.Inc()
		e.logger.Warn("failed to publish event",
			"event_type", event.Type,
			"job_id", event.JobID,
			"error", err,
		)
	}
}

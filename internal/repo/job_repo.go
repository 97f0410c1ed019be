package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conduit/internal/domain"
)

// JobRepo — репозиторий для работы с jobs.
// Реализует engine.JobStore.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `
	id, workflow_id, status, input, node_results, result,
	error, failed_node, idempotency_key,
	started_at, finished_at, created_at, updated_at`

// Create сохраняет новый job.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	resultsJSON, err := json.Marshal(job.NodeResults)
	if err != nil {
		return fmt.Errorf("marshal node results: %w", err)
	}
	resultJSON, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		INSERT INTO jobs (id, workflow_id, status, input, node_results, result,
		                  error, failed_node, idempotency_key,
		                  started_at, finished_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.WorkflowID,
		job.Status,
		inputJSON,
		resultsJSON,
		resultJSON,
		nullString(job.Error),
		nullString(job.FailedNode),
		nullString(job.IdempotencyKey),
		job.StartedAt,
		job.FinishedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get возвращает job по ID.
func (r *JobRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return r.scanJob(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает job по ключу идемпотентности
// или nil, если такого job нет.
func (r *JobRepo) GetByIdempotencyKey(ctx context.Context, workflowID uuid.UUID, key string) (*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE workflow_id = $1 AND idempotency_key = $2
	`
	job, err := r.scanJob(r.pool.QueryRow(ctx, query, workflowID, key))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return job, err
}

// Update перезаписывает job целиком.
func (r *JobRepo) Update(ctx context.Context, job *domain.Job) error {
	inputJSON, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	resultsJSON, err := json.Marshal(job.NodeResults)
	if err != nil {
		return fmt.Errorf("marshal node results: %w", err)
	}
	resultJSON, err := json.Marshal(job.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		UPDATE jobs
		SET status = $2, input = $3, node_results = $4, result = $5,
		    error = $6, failed_node = $7,
		    started_at = $8, finished_at = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		inputJSON,
		resultsJSON,
		resultJSON,
		nullString(job.Error),
		nullString(job.FailedNode),
		job.StartedAt,
		job.FinishedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetNodeResult записывает результат одного узла через jsonb_set,
// не перезаписывая остальные узлы.
func (r *JobRepo) SetNodeResult(ctx context.Context, jobID uuid.UUID, nodeID string, nodeResult domain.NodeResult) error {
	resultJSON, err := json.Marshal(nodeResult)
	if err != nil {
		return fmt.Errorf("marshal node result: %w", err)
	}

	query := `
		UPDATE jobs
		SET node_results = jsonb_set(COALESCE(node_results, '{}'::jsonb), ARRAY[$2], $3::jsonb),
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, jobID, nodeID, resultJSON)
	if err != nil {
		return fmt.Errorf("set node result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimPending атомарно переводит до limit PENDING jobs в RUNNING
// и возвращает их. FOR UPDATE SKIP LOCKED исключает двойной захват
// конкурирующими процессами.
func (r *JobRepo) ClaimPending(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1, started_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	rows, err := r.pool.Query(ctx, query,
		domain.JobStatusRunning,
		domain.JobStatusPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CancelPending атомарно переводит PENDING job в CANCELLED.
// Возвращает false, если job уже не PENDING.
func (r *JobRepo) CancelPending(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $2, finished_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.pool.Exec(ctx, query, id, domain.JobStatusCancelled, domain.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("cancel pending job: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// List возвращает список jobs с фильтрацией.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.WorkflowID),
		nullStatus(filter.Status),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := r.scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// --- Helpers ---

// JobFilter — параметры фильтрации jobs.
type JobFilter struct {
	WorkflowID *uuid.UUID
	Status     *domain.JobStatus
	Limit      int
	Offset     int
}

func (r *JobRepo) scanJob(row pgx.Row) (*domain.Job, error) {
	job, err := scanJobColumns(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

func (r *JobRepo) scanJobFromRows(rows pgx.Rows) (*domain.Job, error) {
	return scanJobColumns(rows.Scan)
}

func scanJobColumns(scan func(dest ...any) error) (*domain.Job, error) {
	var j domain.Job
	var errMsg, failedNode, idempotencyKey *string
	var inputJSON, resultsJSON, resultJSON []byte

	err := scan(
		&j.ID,
		&j.WorkflowID,
		&j.Status,
		&inputJSON,
		&resultsJSON,
		&resultJSON,
		&errMsg,
		&failedNode,
		&idempotencyKey,
		&j.StartedAt,
		&j.FinishedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if errMsg != nil {
		j.Error = *errMsg
	}
	if failedNode != nil {
		j.FailedNode = *failedNode
	}
	if idempotencyKey != nil {
		j.IdempotencyKey = *idempotencyKey
	}
	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &j.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if resultsJSON != nil {
		if err := json.Unmarshal(resultsJSON, &j.NodeResults); err != nil {
			return nil, fmt.Errorf("unmarshal node results: %w", err)
		}
	}
	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &j.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return &j, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для nil или нулевого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// nullStatus возвращает nil для nil-указателя, иначе строку статуса.
func nullStatus(s *domain.JobStatus) *string {
	if s == nil {
		return nil
	}
	str := string(*s)
	return &str
}

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

// WorkflowRepo — репозиторий для работы с workflows.
//
// Узлы и рёбра хранятся как jsonb: определение workflow неизменяемо
// после создания, частичные обновления графа не нужны.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, workflow *domain.Workflow) error {
	nodesJSON, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(workflow.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, nodes, edges, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		workflow.ID,
		workflow.Name,
		nodesJSON,
		edgesJSON,
		workflow.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// Get возвращает workflow по ID.
func (r *WorkflowRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, created_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает workflow по имени.
func (r *WorkflowRepo) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, created_at
		FROM workflows
		WHERE name = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, name))
}

// List возвращает список всех workflows.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, nodes, edges, created_at
		FROM workflows
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		var w domain.Workflow
		var nodesJSON, edgesJSON []byte
		if err := rows.Scan(
			&w.ID,
			&w.Name,
			&nodesJSON,
			&edgesJSON,
			&w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		if err := unmarshalGraph(&w, nodesJSON, edgesJSON); err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// Delete удаляет workflow (каскадно удалит jobs и schedules).
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var w domain.Workflow
	var nodesJSON, edgesJSON []byte

	err := row.Scan(
		&w.ID,
		&w.Name,
		&nodesJSON,
		&edgesJSON,
		&w.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := unmarshalGraph(&w, nodesJSON, edgesJSON); err != nil {
		return nil, err
	}
	return &w, nil
}

func unmarshalGraph(w *domain.Workflow, nodesJSON, edgesJSON []byte) error {
	if err := json.Unmarshal(nodesJSON, &w.Nodes); err != nil {
		return fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &w.Edges); err != nil {
		return fmt.Errorf("unmarshal edges: %w", err)
	}
	return nil
}

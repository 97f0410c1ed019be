package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/engine"
	"github.com/shaiso/Conduit/internal/repo"
)

// ListJobs возвращает список jobs с фильтрацией.
// GET /api/v1/jobs?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := repo.JobFilter{}

	if workflowIDStr := r.URL.Query().Get("workflow_id"); workflowIDStr != "" {
		workflowID, err := uuid.Parse(workflowIDStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &workflowID
	}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := domain.JobStatus(statusStr)
		filter.Status = &status
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	jobs, err := h.jobRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i, job := range jobs {
		result[i] = JobFromDomain(job)
	}

	List(w, result, len(result))
}

// ExecuteWorkflow запускает workflow, создавая новый job.
// POST /api/v1/workflows/{id}/jobs
//
// При совпадении idempotency_key возвращается существующий job,
// дубликат не создаётся.
func (h *Handler) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req ExecuteWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	job, err := h.engine.Execute(r.Context(), workflowID, req.Input, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, engine.ErrWorkflowNotFound) || errors.Is(err, repo.ErrNotFound) {
			NotFound(w, "workflow not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, JobFromDomain(*job))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
//
// Для выполняющегося job node_results содержат результаты уже
// завершённых узлов.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobRepo.Get(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(*job))
}

// CancelJob отменяет job.
// POST /api/v1/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	if err := h.engine.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, engine.ErrJobNotFound) || errors.Is(err, repo.ErrNotFound):
			NotFound(w, "job not found")
		case errors.Is(err, engine.ErrJobFinished):
			InvalidState(w, "job is already finished")
		case errors.Is(err, engine.ErrJobNotManaged):
			Conflict(w, "job is running on another instance")
		default:
			InternalError(w, h.logger, err)
		}
		return
	}

	job, err := h.jobRepo.Get(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(*job))
}

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/graph"
)

// ListWorkflows возвращает список всех workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflowRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
//
// Граф валидируется до сохранения: некорректный workflow не попадает
// в хранилище, ошибка валидации возвращается с указанием узла.
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	workflow := &domain.Workflow{
		ID:        uuid.New(),
		Name:      req.Name,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		CreatedAt: time.Now(),
	}

	if err := graph.Validate(workflow, h.registry); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.Create(r.Context(), workflow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, WorkflowFromDomain(*workflow))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	workflow, err := h.workflowRepo.Get(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*workflow))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflowRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

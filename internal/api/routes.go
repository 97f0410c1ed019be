package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))

	// Jobs
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /api/v1/workflows/{id}/jobs", chain(http.HandlerFunc(h.ExecuteWorkflow)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("POST /api/v1/jobs/{id}/cancel", chain(http.HandlerFunc(h.CancelJob)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/workflows/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}

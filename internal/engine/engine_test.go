package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/executor"
	"github.com/shaiso/Conduit/internal/model"
)

// --- Тестовые фейки ---

// memStore — хранилище workflows и jobs в памяти.
type memStore struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]*domain.Workflow
	jobs      map[uuid.UUID]*domain.Job
}

func newMemStore() *memStore {
	return &memStore{
		workflows: make(map[uuid.UUID]*domain.Workflow),
		jobs:      make(map[uuid.UUID]*domain.Job),
	}
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	if job.NodeResults != nil {
		c.NodeResults = make(map[string]domain.NodeResult, len(job.NodeResults))
		for k, v := range job.NodeResults {
			c.NodeResults[k] = v
		}
	}
	return &c
}

func (s *memStore) addWorkflow(wf *domain.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.ID] = wf
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	return wf, nil
}

func (s *memStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *memStore) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *memStore) GetByIdempotencyKey(_ context.Context, workflowID uuid.UUID, key string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.WorkflowID == workflowID && job.IdempotencyKey == key {
			return cloneJob(job), nil
		}
	}
	return nil, nil
}

func (s *memStore) Update(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *memStore) SetNodeResult(_ context.Context, jobID uuid.UUID, nodeID string, result domain.NodeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.SetNodeResult(nodeID, result)
	return nil
}

func (s *memStore) ClaimPending(_ context.Context, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []domain.Job
	for _, job := range s.jobs {
		if len(claimed) >= limit {
			break
		}
		if job.Status == domain.JobStatusPending {
			job.MarkRunning()
			claimed = append(claimed, *cloneJob(job))
		}
	}
	return claimed, nil
}

func (s *memStore) CancelPending(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != domain.JobStatusPending {
		return false, nil
	}
	job.MarkCancelled()
	return true, nil
}

// jobStoreAdapter разводит одноимённые Get у WorkflowStore и JobStore.
type jobStoreAdapter struct{ *memStore }

func (a jobStoreAdapter) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return a.GetJob(ctx, id)
}

// eventRecorder — запись опубликованных событий по порядку.
type eventRecorder struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (r *eventRecorder) PublishEvent(_ context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) all() []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Event(nil), r.events...)
}

func (r *eventRecorder) countFor(nodeID string, eventType domain.EventType) int {
	n := 0
	for _, e := range r.all() {
		if e.NodeID == nodeID && e.Type == eventType {
			n++
		}
	}
	return n
}

// scriptInvoker — клиент модели, управляемый тестом.
type scriptInvoker struct {
	fn func(req *model.Request) (*model.Response, error)
}

func (s *scriptInvoker) Invoke(_ context.Context, req *model.Request) (*model.Response, error) {
	return s.fn(req)
}

// --- Хелперы ---

type testEnv struct {
	engine *Engine
	store  *memStore
	events *eventRecorder
}

func newTestEnv(t *testing.T, invoker model.Invoker, opts ...func(*Config)) *testEnv {
	t.Helper()

	store := newMemStore()
	events := &eventRecorder{}
	if invoker == nil {
		invoker = &scriptInvoker{fn: func(*model.Request) (*model.Response, error) {
			return &model.Response{Text: "ok"}, nil
		}}
	}

	cfg := Config{
		Workflows:    store,
		Jobs:         jobStoreAdapter{store},
		Registry:     executor.DefaultRegistry(invoker, nil),
		Publisher:    events,
		RetryBackoff: time.Millisecond,
		PollInterval: time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	eng := New(cfg)
	t.Cleanup(eng.Stop)
	return &testEnv{engine: eng, store: store, events: events}
}

func (env *testEnv) addWorkflow(t *testing.T, nodes []domain.Node, edges []domain.Edge) *domain.Workflow {
	t.Helper()
	wf := &domain.Workflow{
		ID:        uuid.New(),
		Name:      "test-workflow",
		Nodes:     nodes,
		Edges:     edges,
		CreatedAt: time.Now(),
	}
	env.store.addWorkflow(wf)
	return wf
}

func (env *testEnv) waitForTerminal(t *testing.T, jobID uuid.UUID) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := env.store.GetJob(context.Background(), jobID)
		if err == nil && job.IsFinished() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal status in time")
	return nil
}

func linearNodes() ([]domain.Node, []domain.Edge) {
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "end", Type: domain.NodeTypeEnd, Config: map[string]any{
			"result": map[string]any{"greeting": "hello {{input.name}}"},
		}},
	}
	edges := []domain.Edge{{Source: "start", Target: "end"}}
	return nodes, edges
}

// branchingWorkflow — сценарий классификации обращения:
// start -> classify(llm) -> route(conditional) -> [technical|general] -> end.
func branchingWorkflow(env *testEnv, t *testing.T) *domain.Workflow {
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "classify", Type: domain.NodeTypeLLM, Config: map[string]any{
			"prompt":        "Classify this message: {{input.message}}",
			"output_format": "json",
		}},
		{ID: "route", Type: domain.NodeTypeConditional, Config: map[string]any{
			"condition": "{{classify.output.category}} == 'technical'",
		}},
		{ID: "technical_support", Type: domain.NodeTypeLLM, Config: map[string]any{
			"prompt": "Draft a technical reply to: {{input.message}}",
		}},
		{ID: "general_support", Type: domain.NodeTypeLLM, Config: map[string]any{
			"prompt": "Draft a general reply to: {{input.message}}",
		}},
		{ID: "end", Type: domain.NodeTypeEnd, Config: map[string]any{
			"result": map[string]any{"category": "{{classify.output.category}}"},
		}},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "classify"},
		{Source: "classify", Target: "route"},
		{Source: "route", Target: "technical_support", Label: domain.EdgeLabelTrue},
		{Source: "route", Target: "general_support", Label: domain.EdgeLabelFalse},
		{Source: "technical_support", Target: "end"},
		{Source: "general_support", Target: "end"},
	}
	return env.addWorkflow(t, nodes, edges)
}

func classifyInvoker(category string) *scriptInvoker {
	return &scriptInvoker{fn: func(req *model.Request) (*model.Response, error) {
		if req.Prompt != "" && req.Prompt[0] == 'C' { // "Classify ..."
			return &model.Response{Text: `{"category": "` + category + `"}`}, nil
		}
		return &model.Response{Text: "drafted reply"}, nil
	}}
}

// --- Тесты ---

func TestEngine_LinearJobSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	nodes, edges := linearNodes()
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"name": "alice"}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED (error: %s)", final.Status, final.Error)
	}
	if final.Result["greeting"] != "hello alice" {
		t.Errorf("result = %v", final.Result)
	}
	if final.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}

	events := env.events.all()
	if len(events) == 0 || events[0].Type != domain.EventJobStarted {
		t.Error("first event must be job_started")
	}
	if events[len(events)-1].Type != domain.EventJobCompleted {
		t.Errorf("last event = %s, want job_completed", events[len(events)-1].Type)
	}
}

func TestEngine_ConditionalRoutesTrueBranch(t *testing.T) {
	env := newTestEnv(t, classifyInvoker("technical"))
	wf := branchingWorkflow(env, t)

	job, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"message": "my server is down"}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s (error: %s)", final.Status, final.Error)
	}
	if final.Result["category"] != "technical" {
		t.Errorf("result = %v", final.Result)
	}

	for _, nodeID := range []string{"start", "classify", "route", "technical_support", "end"} {
		if final.NodeResults[nodeID].Status != domain.NodeStatusSucceeded {
			t.Errorf("node %s status = %s, want SUCCEEDED", nodeID, final.NodeResults[nodeID].Status)
		}
	}
	if final.NodeResults["general_support"].Status != domain.NodeStatusSkipped {
		t.Errorf("general_support status = %s, want SKIPPED", final.NodeResults["general_support"].Status)
	}

	// Отсечённая ветка не должна была даже стартовать
	if n := env.events.countFor("general_support", domain.EventNodeStarted); n != 0 {
		t.Errorf("general_support dispatched %d times, want 0", n)
	}
	if n := env.events.countFor("technical_support", domain.EventNodeStarted); n != 1 {
		t.Errorf("technical_support dispatched %d times, want 1", n)
	}
}

func TestEngine_ConditionalRoutesFalseBranch(t *testing.T) {
	env := newTestEnv(t, classifyInvoker("billing"))
	wf := branchingWorkflow(env, t)

	job, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"message": "refund please"}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s (error: %s)", final.Status, final.Error)
	}
	if final.NodeResults["general_support"].Status != domain.NodeStatusSucceeded {
		t.Error("general_support must run on false branch")
	}
	if final.NodeResults["technical_support"].Status != domain.NodeStatusSkipped {
		t.Error("technical_support must be skipped on false branch")
	}
}

func TestEngine_PrunedEndNeverHangs(t *testing.T) {
	// end достижим только через true ветку; условие всегда false
	env := newTestEnv(t, nil)
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "route", Type: domain.NodeTypeConditional, Config: map[string]any{
			"condition": "{{input.value}} > 10",
		}},
		{ID: "winner", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "hi"}},
		{ID: "loser", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "hi"}},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "route"},
		{Source: "route", Target: "winner", Label: domain.EdgeLabelTrue},
		{Source: "route", Target: "loser", Label: domain.EdgeLabelFalse},
		{Source: "winner", Target: "end"},
	}
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"value": float64(5)}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want FAILED", final.Status)
	}
	if final.Error != ErrEndUnreachable.Error() {
		t.Errorf("error = %q, want end unreachable", final.Error)
	}
	// Взятая ветка при этом выполняется
	if final.NodeResults["loser"].Status != domain.NodeStatusSucceeded {
		t.Errorf("loser status = %s, want SUCCEEDED", final.NodeResults["loser"].Status)
	}
	if final.NodeResults["end"].Status != domain.NodeStatusSkipped {
		t.Errorf("end status = %s, want SKIPPED", final.NodeResults["end"].Status)
	}
}

func TestEngine_TransientRetrySucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	env := newTestEnv(t, nil)
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "notify", Type: domain.NodeTypeHTTP, Config: map[string]any{"url": server.URL}},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "notify"},
		{Source: "notify", Target: "end"},
	}
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, nil, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s (error: %s)", final.Status, final.Error)
	}

	notify := final.NodeResults["notify"]
	if notify.Status != domain.NodeStatusSucceeded {
		t.Fatalf("notify status = %s", notify.Status)
	}
	if notify.Attempt != 3 {
		t.Errorf("notify attempt = %d, want 3", notify.Attempt)
	}
	if env.events.countFor("notify", domain.EventNodeFailed) != 0 {
		t.Error("retried node must not emit node_failed")
	}
	if env.events.countFor("notify", domain.EventNodeCompleted) != 1 {
		t.Error("retried node must emit exactly one node_completed")
	}
}

func TestEngine_UpstreamFailureFailsJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	env := newTestEnv(t, nil)
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "fetch", Type: domain.NodeTypeHTTP, Config: map[string]any{"url": server.URL}},
		{ID: "after", Type: domain.NodeTypeLLM, Config: map[string]any{"prompt": "hi"}},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "fetch"},
		{Source: "fetch", Target: "after"},
		{Source: "after", Target: "end"},
	}
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, nil, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want FAILED", final.Status)
	}
	if final.FailedNode != "fetch" {
		t.Errorf("FailedNode = %q, want fetch", final.FailedNode)
	}

	fetch := final.NodeResults["fetch"]
	if fetch.Status != domain.NodeStatusFailed {
		t.Errorf("fetch status = %s", fetch.Status)
	}
	if fetch.ErrorKind != string(executor.KindUpstreamFailure) {
		t.Errorf("fetch error kind = %s", fetch.ErrorKind)
	}
	if fetch.Attempt != 1 {
		t.Errorf("upstream failure retried: attempt = %d", fetch.Attempt)
	}
	if env.events.countFor("after", domain.EventNodeStarted) != 0 {
		t.Error("nodes after the failure must not be dispatched")
	}
}

func TestEngine_UnresolvedReferenceFailsWithoutRetry(t *testing.T) {
	env := newTestEnv(t, nil)
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "bad", Type: domain.NodeTypeLLM, Config: map[string]any{
			"prompt": "use {{missing_node.output.value}}",
		}},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "bad"},
		{Source: "bad", Target: "end"},
	}
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, nil, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want FAILED", final.Status)
	}
	bad := final.NodeResults["bad"]
	if bad.ErrorKind != string(executor.KindUnresolvedReference) {
		t.Errorf("error kind = %s, want unresolved_reference", bad.ErrorKind)
	}
	if bad.Attempt != 1 {
		t.Errorf("unresolved reference retried: attempt = %d", bad.Attempt)
	}
}

func TestEngine_CancelActiveJob(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("done"))
	}))
	defer server.Close()
	defer close(release)

	env := newTestEnv(t, nil)
	nodes := []domain.Node{
		{ID: "start", Type: domain.NodeTypeStart},
		{ID: "slow", Type: domain.NodeTypeHTTP, Config: map[string]any{"url": server.URL}},
		{ID: "end", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{Source: "start", Target: "slow"},
		{Source: "slow", Target: "end"},
	}
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, nil, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Ждём пока slow уйдёт в работу
	deadline := time.Now().Add(2 * time.Second)
	for env.events.countFor("slow", domain.EventNodeStarted) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow node was not dispatched")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := env.engine.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	release <- struct{}{}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", final.Status)
	}
	if env.events.countFor("end", domain.EventNodeStarted) != 0 {
		t.Error("no node may start after cancellation")
	}

	events := env.events.all()
	if events[len(events)-1].Type != domain.EventJobCancelled {
		t.Errorf("last event = %s, want job_cancelled", events[len(events)-1].Type)
	}
}

func TestEngine_CancelPendingJob(t *testing.T) {
	env := newTestEnv(t, nil)
	nodes, edges := linearNodes()
	wf := env.addWorkflow(t, nodes, edges)

	job := &domain.Job{
		ID:         uuid.New(),
		WorkflowID: wf.ID,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now(),
	}
	env.store.Create(context.Background(), job)

	if err := env.engine.Cancel(context.Background(), job.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	final, _ := env.store.GetJob(context.Background(), job.ID)
	if final.Status != domain.JobStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", final.Status)
	}
}

func TestEngine_CancelFinishedJob(t *testing.T) {
	env := newTestEnv(t, nil)
	nodes, edges := linearNodes()
	wf := env.addWorkflow(t, nodes, edges)

	job, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"name": "x"}, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	env.waitForTerminal(t, job.ID)

	// Горутина job снимает себя с учёта чуть позже записи статуса
	deadline := time.Now().Add(2 * time.Second)
	for env.engine.ActiveJobsCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	if err := env.engine.Cancel(context.Background(), job.ID); err != ErrJobFinished {
		t.Errorf("Cancel() error = %v, want ErrJobFinished", err)
	}
}

func TestEngine_IdempotencyKeyReturnsExistingJob(t *testing.T) {
	env := newTestEnv(t, nil)
	nodes, edges := linearNodes()
	wf := env.addWorkflow(t, nodes, edges)

	first, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"name": "a"}, "sched_2026-08-24")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, err := env.engine.Execute(context.Background(), wf.ID, map[string]any{"name": "a"}, "sched_2026-08-24")
	if err != nil {
		t.Fatalf("Execute() second error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("idempotent execute created a new job: %s != %s", first.ID, second.ID)
	}
}

func TestEngine_ExecuteUnknownWorkflow(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.engine.Execute(context.Background(), uuid.New(), nil, "")
	if err == nil {
		t.Fatal("expected error for unknown workflow")
	}
}

func TestEngine_PollClaimsPendingJobs(t *testing.T) {
	env := newTestEnv(t, nil, func(cfg *Config) {
		cfg.PollInterval = 10 * time.Millisecond
	})
	nodes, edges := linearNodes()
	wf := env.addWorkflow(t, nodes, edges)

	job := &domain.Job{
		ID:         uuid.New(),
		WorkflowID: wf.ID,
		Status:     domain.JobStatusPending,
		Input:      map[string]any{"name": "poller"},
		CreatedAt:  time.Now(),
	}
	env.store.Create(context.Background(), job)

	if err := env.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final := env.waitForTerminal(t, job.ID)
	if final.Status != domain.JobStatusSucceeded {
		t.Fatalf("status = %s (error: %s)", final.Status, final.Error)
	}
	if final.Result["greeting"] != "hello poller" {
		t.Errorf("result = %v", final.Result)
	}
}

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/executor"
	"github.com/shaiso/Conduit/internal/expr"
	"github.com/shaiso/Conduit/internal/telemetry"
)

// nodeOutcome — финальный результат выполнения узла
// (после всех retry), присланный горутиной узла планировщику.
type nodeOutcome struct {
	nodeID     string
	resp       *executor.Response
	err        *executor.NodeError
	attempt    int
	startedAt  time.Time
	finishedAt time.Time
}

// runJob — цикл планировщика одного job.
//
// Каждая итерация: проверка отмены, отсечение мёртвых веток,
// отправка готовых узлов (в пределах лимита), ожидание результата.
// Цикл завершается финализацией job: SUCCEEDED, FAILED или CANCELLED.
func (e *Engine) runJob(ctx context.Context, state *jobState, wf *domain.Workflow) {
	job := state.job
	log := e.logger.With("job_id", job.ID, "workflow", wf.Name)

	log.Info("job started", "nodes", state.dag.Size(), "input_keys", len(job.Input))
	e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventJobStarted))

	// Буфер на все узлы: горутины узлов никогда не блокируются на отправке
	results := make(chan *nodeOutcome, state.dag.Size())

	for {
		// Отмена проверяется до отправки любого нового узла
		if state.cancelRequested() {
			e.finalizeCancelled(ctx, state, results, log)
			return
		}

		for _, prunedID := range state.propagatePrunes() {
			log.Debug("node pruned", "node_id", prunedID)
			e.recordNodeResult(ctx, job, prunedID, domain.NodeResult{Status: domain.NodeStatusSkipped})
		}

		for _, nodeID := range state.readyNodes() {
			if state.runningCount() >= e.nodeConcurrency {
				break
			}
			e.dispatchNode(ctx, state, nodeID, results, log)
		}

		if state.runningCount() == 0 {
			e.finalize(ctx, state, log)
			return
		}

		select {
		case outcome := <-results:
			if failed := e.applyOutcome(ctx, state, outcome, log); failed {
				e.finalizeFailed(ctx, state, outcome, results, log)
				return
			}
		case <-state.cancelCh:
			// Следующая итерация увидит флаг и финализирует
		case <-ctx.Done():
			log.Warn("engine stopping, job left running", "running_nodes", state.runningCount())
			return
		}
	}
}

// dispatchNode помечает узел выполняющимся и запускает его горутину.
func (e *Engine) dispatchNode(ctx context.Context, state *jobState, nodeID string, results chan<- *nodeOutcome, log *slog.Logger) {
	state.markRunning(nodeID)
	node := state.dag.Node(nodeID)

	log.Debug("node dispatched", "node_id", nodeID, "node_type", node.Type)
	e.publish(ctx, domain.NewEvent(state.job.ID, state.job.WorkflowID, domain.EventNodeStarted).WithNode(nodeID))

	// Snapshot контекста: горутина узла читает его, пока планировщик
	// пополняет оригинал результатами других узлов
	exprCtx := state.exprCtx.Snapshot()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		results <- e.executeNode(ctx, node, exprCtx)
	}()
}

// executeNode выполняет узел с retry для transient ошибок.
// Retry остаётся внутри границы вызова узла: планировщику
// возвращается только финальный исход.
func (e *Engine) executeNode(ctx context.Context, node *domain.Node, exprCtx *expr.Context) *nodeOutcome {
	outcome := &nodeOutcome{nodeID: node.ID, startedAt: time.Now()}

	exec, err := e.registry.Get(node.Type)
	if err != nil {
		outcome.err = executor.Classify(err)
		outcome.finishedAt = time.Now()
		return outcome
	}

	for outcome.attempt = 1; ; outcome.attempt++ {
		outcome.resp, outcome.err = e.invokeOnce(ctx, exec, node, exprCtx)
		if outcome.err == nil || !outcome.err.Retryable() || outcome.attempt >= e.maxAttempts {
			break
		}

		telemetry.NodeRetries.Inc()
		backoff := e.retryBackoff << (outcome.attempt - 1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			outcome.err = executor.Classify(ctx.Err())
			outcome.finishedAt = time.Now()
			return outcome
		}
	}

	outcome.finishedAt = time.Now()
	return outcome
}

// invokeOnce — одна попытка выполнения узла: разрешение выражений
// конфигурации и вызов executor'а.
func (e *Engine) invokeOnce(ctx context.Context, exec executor.Executor, node *domain.Node, exprCtx *expr.Context) (*executor.Response, *executor.NodeError) {
	config := node.Config

	// Условие conditional узла вычисляется целиком самим executor'ом,
	// текстовая подстановка сломала бы строковые литералы
	if node.Type != domain.NodeTypeConditional {
		resolved, err := expr.ResolveConfig(node.Config, exprCtx)
		if err != nil {
			return nil, executor.Classify(err)
		}
		config = resolved
	}

	resp, err := exec.Execute(ctx, &executor.Request{
		Node:        node,
		Config:      config,
		ExprContext: exprCtx,
		Timeout:     e.nodeTimeout,
	})
	if err != nil {
		return nil, executor.Classify(err)
	}
	return resp, nil
}

// applyOutcome применяет результат узла к состоянию job.
// Возвращает true, если узел упал и job надо финализировать.
func (e *Engine) applyOutcome(ctx context.Context, state *jobState, outcome *nodeOutcome, log *slog.Logger) bool {
	job := state.job
	node := state.dag.Node(outcome.nodeID)

	duration := outcome.finishedAt.Sub(outcome.startedAt)
	telemetry.NodeDuration.WithLabelValues(string(node.Type)).Observe(duration.Seconds())

	if outcome.err != nil {
		telemetry.NodesExecuted.WithLabelValues(string(node.Type), "failed").Inc()
		state.markFailed(outcome.nodeID)

		log.Error("node failed",
			"node_id", outcome.nodeID,
			"node_type", node.Type,
			"kind", outcome.err.Kind,
			"attempt", outcome.attempt,
			"error", outcome.err.Message,
		)

		e.recordNodeResult(ctx, job, outcome.nodeID, domain.NodeResult{
			Status:     domain.NodeStatusFailed,
			Error:      outcome.err.Message,
			ErrorKind:  string(outcome.err.Kind),
			Attempt:    outcome.attempt,
			StartedAt:  &outcome.startedAt,
			FinishedAt: &outcome.finishedAt,
		})
		e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventNodeFailed).
			WithNode(outcome.nodeID).
			WithPayload(map[string]any{
				"error":   outcome.err.Message,
				"kind":    string(outcome.err.Kind),
				"attempt": outcome.attempt,
			}))
		return true
	}

	telemetry.NodesExecuted.WithLabelValues(string(node.Type), "succeeded").Inc()
	state.markCompleted(outcome.nodeID, outcome.resp.Output, outcome.resp.SelectedEdge)

	log.Debug("node completed",
		"node_id", outcome.nodeID,
		"node_type", node.Type,
		"attempt", outcome.attempt,
		"duration", duration,
	)

	// Запись узла хранит только финальный успешный результат
	e.recordNodeResult(ctx, job, outcome.nodeID, domain.NodeResult{
		Status:     domain.NodeStatusSucceeded,
		Output:     outcome.resp.Output,
		Attempt:    outcome.attempt,
		StartedAt:  &outcome.startedAt,
		FinishedAt: &outcome.finishedAt,
	})

	payload := map[string]any{"attempt": outcome.attempt}
	if outcome.resp.SelectedEdge != "" {
		payload["selected_edge"] = outcome.resp.SelectedEdge
	}
	e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventNodeCompleted).
		WithNode(outcome.nodeID).
		WithPayload(payload))

	return false
}

// finalize завершает job, когда узлов в работе и готовых не осталось.
// Завершённый end узел — успех; недостижимый end — отказ, job
// никогда не зависает.
func (e *Engine) finalize(ctx context.Context, state *jobState, log *slog.Logger) {
	job := state.job

	if result, ok := state.endResult(); ok {
		job.MarkSucceeded(result)
		e.updateJob(ctx, job, log)
		telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusSucceeded)).Inc()

		log.Info("job completed", "duration", job.Duration())
		e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventJobCompleted).
			WithPayload(map[string]any{"result": result}))
		return
	}

	job.MarkFailed("", ErrEndUnreachable.Error())
	e.updateJob(ctx, job, log)
	telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()

	log.Warn("job failed: end node unreachable")
	e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventJobFailed).
		WithPayload(map[string]any{"error": ErrEndUnreachable.Error()}))
}

// finalizeFailed завершает job после отказа узла: уже отправленные
// узлы дорабатывают, их результаты записываются, новые не стартуют.
func (e *Engine) finalizeFailed(ctx context.Context, state *jobState, cause *nodeOutcome, results <-chan *nodeOutcome, log *slog.Logger) {
	job := state.job

	e.drainRunning(ctx, state, results, log)

	job.MarkFailed(cause.nodeID, cause.err.Error())
	e.updateJob(ctx, job, log)
	telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusFailed)).Inc()

	log.Info("job failed", "failed_node", cause.nodeID, "kind", cause.err.Kind)
	e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventJobFailed).
		WithPayload(map[string]any{
			"failed_node": cause.nodeID,
			"error":       cause.err.Message,
			"kind":        string(cause.err.Kind),
		}))
}

// finalizeCancelled завершает отменённый job: дожидается уже
// отправленных узлов, но их результаты не планируют новые узлы.
func (e *Engine) finalizeCancelled(ctx context.Context, state *jobState, results <-chan *nodeOutcome, log *slog.Logger) {
	job := state.job

	e.drainRunning(ctx, state, results, log)

	job.MarkCancelled()
	e.updateJob(ctx, job, log)
	telemetry.JobsFinished.WithLabelValues(string(domain.JobStatusCancelled)).Inc()

	log.Info("job cancelled")
	e.publish(ctx, domain.NewEvent(job.ID, job.WorkflowID, domain.EventJobCancelled))
}

// drainRunning дожидается всех отправленных узлов и записывает
// их результаты, не продвигая планирование.
func (e *Engine) drainRunning(ctx context.Context, state *jobState, results <-chan *nodeOutcome, log *slog.Logger) {
	for state.runningCount() > 0 {
		select {
		case outcome := <-results:
			e.applyOutcome(ctx, state, outcome, log)
		case <-ctx.Done():
			log.Warn("engine stopping while draining job", "running_nodes", state.runningCount())
			return
		}
	}
}

// recordNodeResult записывает результат узла в документ job
// и в хранилище.
func (e *Engine) recordNodeResult(ctx context.Context, job *domain.Job, nodeID string, result domain.NodeResult) {
	job.SetNodeResult(nodeID, result)
	if err := e.jobs.SetNodeResult(ctx, job.ID, nodeID, result); err != nil {
		e.logger.Error("failed to persist node result",
			"job_id", job.ID,
			"node_id", nodeID,
			"error", err,
		)
	}
}

func (e *Engine) updateJob(ctx context.Context, job *domain.Job, log *slog.Logger) {
	job.UpdatedAt = time.Now()
	if err := e.jobs.Update(ctx, job); err != nil {
		log.Error("failed to persist job state", "status", job.Status, "error", err)
	}
}

package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type JobStatus string

const (
	// JobStatusPending — job создан, но ещё не подхвачен движком.
	JobStatusPending JobStatus = "PENDING"

	// JobStatusRunning — job в процессе выполнения.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — job успешно завершён, result заполнен.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершился с ошибкой узла.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusCancelled — job отменён внешним запросом.
	JobStatusCancelled JobStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (job завершён).
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// NodeStatus — статус выполнения узла в рамках job.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
//	SKIPPED — узел на невыбранной ветке conditional, не выполнялся.
type NodeStatus string

const (
	// NodeStatusRunning — узел выполняется.
	NodeStatusRunning NodeStatus = "RUNNING"

	// NodeStatusSucceeded — узел успешно завершён.
	NodeStatusSucceeded NodeStatus = "SUCCEEDED"

	// NodeStatusFailed — узел завершился с ошибкой (после всех retry).
	NodeStatusFailed NodeStatus = "FAILED"

	// NodeStatusSkipped — узел отсечён ветвлением и никогда не будет запущен.
	NodeStatusSkipped NodeStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusSucceeded, NodeStatusFailed, NodeStatusSkipped:
		return true
	default:
		return false
	}
}

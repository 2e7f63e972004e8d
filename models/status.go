package models

// OrderStatus is the production pipeline position of an order.
type OrderStatus string

const (
	StatusPendingQuote OrderStatus = "pending_quote"
	StatusQueued       OrderStatus = "queued"
	StatusSandBlasting OrderStatus = "sand-blasting"
	StatusCoating      OrderStatus = "coating"
	StatusCuring       OrderStatus = "curing"
	StatusQualityCheck OrderStatus = "quality-check"
	StatusCompleted    OrderStatus = "completed"
	StatusDelayed      OrderStatus = "delayed"

	// StatusInPreparation is a legacy name for sand-blasting still found in old rows.
	StatusInPreparation OrderStatus = "in_preparation"
)

// Statuses lists the accepted status values in pipeline order, exception last.
var Statuses = []OrderStatus{
	StatusPendingQuote,
	StatusQueued,
	StatusSandBlasting,
	StatusCoating,
	StatusCuring,
	StatusQualityCheck,
	StatusCompleted,
	StatusDelayed,
}

var pipelineProgress = map[OrderStatus]int{
	StatusPendingQuote:  0,
	StatusQueued:        10,
	StatusSandBlasting:  25,
	StatusInPreparation: 25,
	StatusCoating:       50,
	StatusCuring:        70,
	StatusQualityCheck:  85,
	StatusCompleted:     100,
}

// Valid reports whether s may be assigned through a status change.
func (s OrderStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// StageKind tells pipeline stages apart from exception stages.
type StageKind int

const (
	StagePipeline StageKind = iota
	StageException
)

// Stage is the resolved form of a status: either a pipeline position with
// a canonical progress, or an exception that carries no progress of its own.
type Stage struct {
	Status   OrderStatus
	Kind     StageKind
	Progress int // meaningful only for StagePipeline
}

// StageOf resolves a status. Anything outside the pipeline table, including
// delayed, is an exception stage.
func StageOf(s OrderStatus) Stage {
	if p, ok := pipelineProgress[s]; ok {
		return Stage{Status: s, Kind: StagePipeline, Progress: p}
	}
	return Stage{Status: s, Kind: StageException}
}

// DeriveProgress returns the progress an order should show after moving to
// status s, given its previously stored progress. The second result is true
// when the previous value was kept because s is an exception stage.
func DeriveProgress(s OrderStatus, previous int) (int, bool) {
	st := StageOf(s)
	if st.Kind == StageException {
		return previous, true
	}
	return st.Progress, false
}

// Priority of an order
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

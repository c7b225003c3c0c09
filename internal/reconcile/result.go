package reconcile

import (
	"github.com/klurigast/griffel/internal/metrics"
	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
)

// Engine diffs incoming target state against the stores and commits the
// resulting mutations as staged batches. It never applies a partial batch:
// per-row rejections are collected into Failed, everything accepted commits
// in one transaction.
type Engine struct {
	store store.GradeStore
}

func NewEngine(s store.GradeStore) *Engine {
	return &Engine{store: s}
}

// FailedRow reports one rejected row of a bulk sync, echoing the offending
// input alongside a stable reason code.
type FailedRow struct {
	Name      string `json:"name,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Grade     string `json:"grade,omitempty"`
	Reason    string `json:"reason"`
}

type RosterSyncResult struct {
	Success []models.RosterEntry `json:"success"`
	Failed  []FailedRow          `json:"failed"`
}

type GradeSyncResult struct {
	Success []models.GradeDetail `json:"success"`
	Failed  []FailedRow          `json:"failed"`
}

type RemapResult struct {
	Success []models.RosterEntry `json:"success"`
	Failed  []FailedRow          `json:"failed"`
}

func observeRows(operation string, created, updated, deleted, failed int) {
	metrics.ReconcileRowsTotal.WithLabelValues(operation, "created").Add(float64(created))
	metrics.ReconcileRowsTotal.WithLabelValues(operation, "updated").Add(float64(updated))
	metrics.ReconcileRowsTotal.WithLabelValues(operation, "deleted").Add(float64(deleted))
	metrics.ReconcileRowsTotal.WithLabelValues(operation, "failed").Add(float64(failed))
}

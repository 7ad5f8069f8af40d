// Package memory is the in-process report writer used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/reports"
)

type Writer struct {
	mu   sync.Mutex
	rows []core.MonthSummary
}

var _ reports.Writer = (*Writer)(nil)

func New() *Writer { return &Writer{} }

func (w *Writer) AppendMonthSummary(ctx context.Context, sum core.MonthSummary) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, sum)
	return fmt.Sprintf("row-%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []core.MonthSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.MonthSummary, len(w.rows))
	copy(out, w.rows)
	return out
}

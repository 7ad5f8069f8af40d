// Package reports exports month summaries to an external sheet.
package reports

import (
	"context"

	"bilancio/internal/core"
)

// Writer appends one month summary row to the export target and returns a
// reference to where it landed.
type Writer interface {
	AppendMonthSummary(ctx context.Context, sum core.MonthSummary) (rowRef string, err error)
}

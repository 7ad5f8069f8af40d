// Package google appends month summaries to a Google Sheets spreadsheet
// using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
	"bilancio/internal/reports"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ reports.Writer = (*Client)(nil)

// Config carries the spreadsheet target and one of the credential sources.
// When both are empty the client falls back to application default
// credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Reports"
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(data),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	default:
		// Application default credentials.
		return gsheet.NewService(ctx, goption.WithScopes(gsheet.SpreadsheetsScope))
	}
}

// AppendMonthSummary writes one row: user id, month, expense, income and
// budget totals as decimal amounts.
func (c *Client) AppendMonthSummary(ctx context.Context, sum core.MonthSummary) (string, error) {
	values := &gsheet.ValueRange{
		Values: [][]any{{
			sum.UserID,
			sum.YearMonth,
			sum.ExpenseTotal.Format(),
			sum.IncomeTotal.Format(),
			sum.BudgetTotal.Format(),
		}},
	}

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:E", values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append summary row: %w", err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return "", nil
}

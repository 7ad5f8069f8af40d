package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	repmem "bilancio/internal/reports/memory"
	"bilancio/internal/storage/memory"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func seed(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	ctx := context.Background()
	userID, err := store.CreateUser(ctx, core.User{Email: "ada@example.com", Name: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	catID, err := store.CreateCategory(ctx, core.Category{UserID: userID, Name: "Food"})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	if _, err := store.CreateExpense(ctx, core.Expense{
		UserID: userID, CategoryID: catID, Name: "Groceries",
		Amount: core.Money{Cents: 12000},
		Date:   time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), YearMonth: "2024-02",
	}); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	if _, err := store.CreateIncome(ctx, core.Income{
		UserID: userID, CategoryID: catID, Name: "Salary",
		Amount: core.Money{Cents: 250000}, Type: core.Irregular,
		StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), YearMonth: "2024-02",
	}); err != nil {
		t.Fatalf("seed income: %v", err)
	}
	return userID
}

func TestHandleSyncMessage(t *testing.T) {
	store := memory.New()
	writer := repmem.New()
	userID := seed(t, store)
	w := NewSyncWorker(store, writer, testLogger())

	msg := amqp.NewReportSyncMessage(userID, "2024-02")
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected one exported row, got %d", len(rows))
	}
	row := rows[0]
	if row.UserID != userID || row.YearMonth != "2024-02" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.ExpenseTotal.Cents != 12000 || row.IncomeTotal.Cents != 250000 {
		t.Fatalf("totals should reflect storage at handling time: %+v", row)
	}
}

func TestHandleSyncMessageRereadsCurrentState(t *testing.T) {
	store := memory.New()
	writer := repmem.New()
	userID := seed(t, store)
	w := NewSyncWorker(store, writer, testLogger())

	// A second expense lands after the message was published; a late handling
	// still exports fresh totals.
	catID, _ := store.CreateCategory(context.Background(), core.Category{UserID: userID, Name: "Extra"})
	if _, err := store.CreateExpense(context.Background(), core.Expense{
		UserID: userID, CategoryID: catID, Name: "Late arrival",
		Amount: core.Money{Cents: 3000},
		Date:   time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), YearMonth: "2024-02",
	}); err != nil {
		t.Fatalf("late expense: %v", err)
	}

	if err := w.HandleSyncMessage(context.Background(), amqp.NewReportSyncMessage(userID, "2024-02")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := writer.Rows()[0].ExpenseTotal.Cents; got != 15000 {
		t.Fatalf("expected 15000, got %d", got)
	}
}

func TestSnapshotPreviousMonth(t *testing.T) {
	store := memory.New()
	writer := repmem.New()
	seed(t, store)
	if _, err := store.CreateUser(context.Background(), core.User{Email: "eve@example.com", Name: "Eve", PasswordHash: "x"}); err != nil {
		t.Fatalf("second user: %v", err)
	}
	w := NewSyncWorker(store, writer, testLogger())

	now := time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC)
	if err := w.SnapshotPreviousMonth(context.Background(), now); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected one row per user, got %d", len(rows))
	}
	for _, row := range rows {
		if row.YearMonth != "2024-02" {
			t.Fatalf("snapshot must cover the previous month, got %s", row.YearMonth)
		}
	}
}

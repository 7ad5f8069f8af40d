// Package sqlite is the file-backed store over modernc.org/sqlite. Dates are
// stored as ISO-8601 text and amounts as integer cents.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open migrates the database file and opens the main pool with foreign key
// enforcement on.
func Open(dbPath string) (*Store, error) {
	if err := storage.RunSQLiteMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// mapErr converts driver constraint failures into the storage sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return storage.ErrConflict
	}
	return err
}

func fmtDate(t time.Time) string { return t.Format(core.DateLayout) }

func parseDate(s string) (time.Time, error) {
	// Some tools write a full timestamp into date columns; keep the day.
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	return time.Parse(core.DateLayout, s)
}

func likePattern(query string) string {
	return "%" + query + "%"
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		strings.ToLower(u.Email), u.Name, u.PasswordHash, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &created); err != nil {
		return core.User{}, mapErr(err)
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		u.CreatedAt = t
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(email)))
}

func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- categories ---

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?)`, c.UserID, c.Name)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`, c.Name, c.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) CategoryByID(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name)
	if err != nil {
		return core.Category{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) Categories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- budgets ---

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, amount_cents, year_month) VALUES (?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.Amount.Cents, b.YearMonth)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET amount_cents = ?, year_month = ? WHERE id = ?`,
		b.Amount.Cents, b.YearMonth, b.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) BudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	var b core.Budget
	err := s.db.QueryRowContext(ctx,
		`SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.year_month
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.id = ?`, id).
		Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.Amount.Cents, &b.YearMonth)
	if err != nil {
		return core.Budget{}, mapErr(err)
	}
	return b, nil
}

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName,
			&b.Amount.Cents, &b.YearMonth); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) Budgets(ctx context.Context, f storage.Filter) ([]core.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.year_month
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ? AND c.name LIKE ?
		 ORDER BY b.year_month DESC, b.id DESC
		 LIMIT ? OFFSET ?`,
		f.UserID, likePattern(f.Query), storage.PageSize, f.Offset())
}

func (s *Store) CountBudgets(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ? AND c.name LIKE ?`,
		f.UserID, likePattern(f.Query)).Scan(&n)
	return n, err
}

func (s *Store) BudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.year_month
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ?
		 ORDER BY b.year_month DESC, b.id DESC`, userID)
}

// --- expenses ---

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, name, amount_cents, date, year_month)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Name, e.Amount.Cents, fmtDate(e.Date), e.YearMonth)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ?, name = ?, amount_cents = ?, date = ?, year_month = ?
		 WHERE id = ?`,
		e.CategoryID, e.Name, e.Amount.Cents, fmtDate(e.Date), e.YearMonth, e.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func scanExpense(scan func(...any) error) (core.Expense, error) {
	var e core.Expense
	var date string
	if err := scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName, &e.Name,
		&e.Amount.Cents, &date, &e.YearMonth); err != nil {
		return core.Expense{}, mapErr(err)
	}
	d, err := parseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date: %w", err)
	}
	e.Date = d
	return e, nil
}

func (s *Store) ExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT e.id, e.user_id, e.category_id, c.name, e.name, e.amount_cents, e.date, e.year_month
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.id = ?`, id)
	return scanExpense(row.Scan)
}

func (s *Store) Expenses(ctx context.Context, f storage.Filter) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.category_id, c.name, e.name, e.amount_cents, e.date, e.year_month
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ? AND (e.name LIKE ? OR c.name LIKE ?)
		 ORDER BY e.date DESC, e.id DESC
		 LIMIT ? OFFSET ?`,
		f.UserID, likePattern(f.Query), likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CountExpenses(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ? AND (e.name LIKE ? OR c.name LIKE ?)`,
		f.UserID, likePattern(f.Query), likePattern(f.Query)).Scan(&n)
	return n, err
}

// --- incomes ---

func (s *Store) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO incomes (user_id, category_id, name, amount_cents, income_type, frequency, start_date, end_date, year_month)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.UserID, in.CategoryID, in.Name, in.Amount.Cents, string(in.Type),
		nullFrequency(in.Frequency), fmtDate(in.StartDate), nullDate(in.EndDate), in.YearMonth)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE incomes SET category_id = ?, name = ?, amount_cents = ?, income_type = ?,
		 frequency = ?, start_date = ?, end_date = ?, year_month = ?
		 WHERE id = ?`,
		in.CategoryID, in.Name, in.Amount.Cents, string(in.Type),
		nullFrequency(in.Frequency), fmtDate(in.StartDate), nullDate(in.EndDate), in.YearMonth, in.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func nullFrequency(f core.Frequency) sql.NullString {
	return sql.NullString{String: string(f), Valid: f != ""}
}

func nullDate(t time.Time) sql.NullString {
	return sql.NullString{String: fmtDate(t), Valid: !t.IsZero()}
}

func scanIncome(scan func(...any) error) (core.Income, error) {
	var in core.Income
	var incomeType string
	var freq, endDate sql.NullString
	var start string
	if err := scan(&in.ID, &in.UserID, &in.CategoryID, &in.CategoryName, &in.Name,
		&in.Amount.Cents, &incomeType, &freq, &start, &endDate, &in.YearMonth); err != nil {
		return core.Income{}, mapErr(err)
	}
	in.Type = core.IncomeType(incomeType)
	if freq.Valid {
		in.Frequency = core.Frequency(freq.String)
	}
	d, err := parseDate(start)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse income start date: %w", err)
	}
	in.StartDate = d
	if endDate.Valid && endDate.String != "" {
		d, err := parseDate(endDate.String)
		if err != nil {
			return core.Income{}, fmt.Errorf("parse income end date: %w", err)
		}
		in.EndDate = d
	}
	return in, nil
}

const incomeColumns = `i.id, i.user_id, i.category_id, c.name, i.name, i.amount_cents,
	i.income_type, i.frequency, i.start_date, i.end_date, i.year_month`

func (s *Store) IncomeByID(ctx context.Context, id int64) (core.Income, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+`
		 FROM incomes i JOIN categories c ON c.id = i.category_id
		 WHERE i.id = ?`, id)
	return scanIncome(row.Scan)
}

func (s *Store) Incomes(ctx context.Context, f storage.Filter) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+incomeColumns+`
		 FROM incomes i JOIN categories c ON c.id = i.category_id
		 WHERE i.user_id = ? AND (i.name LIKE ? OR c.name LIKE ?)
		 ORDER BY i.start_date DESC, i.id DESC
		 LIMIT ? OFFSET ?`,
		f.UserID, likePattern(f.Query), likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) CountIncomes(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incomes i JOIN categories c ON c.id = i.category_id
		 WHERE i.user_id = ? AND (i.name LIKE ? OR c.name LIKE ?)`,
		f.UserID, likePattern(f.Query), likePattern(f.Query)).Scan(&n)
	return n, err
}

// --- debts ---

func (s *Store) CreateDebt(ctx context.Context, d core.Debt) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO debts (user_id, category_id, name, amount_cents, interest_rate)
		 VALUES (?, ?, ?, ?, ?)`,
		d.UserID, d.CategoryID, d.Name, d.Amount.Cents, d.InterestRate)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateDebt(ctx context.Context, d core.Debt) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE debts SET category_id = ?, name = ?, amount_cents = ?, interest_rate = ?
		 WHERE id = ?`,
		d.CategoryID, d.Name, d.Amount.Cents, d.InterestRate, d.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteDebt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

const debtColumns = `d.id, d.user_id, d.category_id, c.name, d.name, d.amount_cents, d.interest_rate,
	COALESCE((SELECT SUM(p.amount_cents) FROM debt_payments p WHERE p.debt_id = d.id), 0)`

func scanDebt(scan func(...any) error) (core.Debt, error) {
	var d core.Debt
	if err := scan(&d.ID, &d.UserID, &d.CategoryID, &d.CategoryName, &d.Name,
		&d.Amount.Cents, &d.InterestRate, &d.TotalPaid.Cents); err != nil {
		return core.Debt{}, mapErr(err)
	}
	return d, nil
}

func (s *Store) DebtByID(ctx context.Context, id int64) (core.Debt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+`
		 FROM debts d JOIN categories c ON c.id = d.category_id
		 WHERE d.id = ?`, id)
	d, err := scanDebt(row.Scan)
	if err != nil {
		return core.Debt{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, debt_id, amount_cents, date FROM debt_payments
		 WHERE debt_id = ? ORDER BY date DESC, id DESC`, id)
	if err != nil {
		return core.Debt{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p core.DebtPayment
		var date string
		if err := rows.Scan(&p.ID, &p.DebtID, &p.Amount.Cents, &date); err != nil {
			return core.Debt{}, err
		}
		pd, err := parseDate(date)
		if err != nil {
			return core.Debt{}, fmt.Errorf("parse payment date: %w", err)
		}
		p.Date = pd
		d.Payments = append(d.Payments, p)
	}
	return d, rows.Err()
}

func (s *Store) Debts(ctx context.Context, f storage.Filter) ([]core.Debt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+debtColumns+`
		 FROM debts d JOIN categories c ON c.id = d.category_id
		 WHERE d.user_id = ? AND (d.name LIKE ? OR c.name LIKE ?)
		 ORDER BY d.id DESC
		 LIMIT ? OFFSET ?`,
		f.UserID, likePattern(f.Query), likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CountDebts(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM debts d JOIN categories c ON c.id = d.category_id
		 WHERE d.user_id = ? AND (d.name LIKE ? OR c.name LIKE ?)`,
		f.UserID, likePattern(f.Query), likePattern(f.Query)).Scan(&n)
	return n, err
}

func (s *Store) CreateDebtPayment(ctx context.Context, p core.DebtPayment) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO debt_payments (debt_id, amount_cents, date) VALUES (?, ?, ?)`,
		p.DebtID, p.Amount.Cents, fmtDate(p.Date))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) DeleteDebtPayment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM debt_payments WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DebtPaymentByID(ctx context.Context, id int64) (core.DebtPayment, error) {
	var p core.DebtPayment
	var date string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, debt_id, amount_cents, date FROM debt_payments WHERE id = ?`, id).
		Scan(&p.ID, &p.DebtID, &p.Amount.Cents, &date)
	if err != nil {
		return core.DebtPayment{}, mapErr(err)
	}
	d, err := parseDate(date)
	if err != nil {
		return core.DebtPayment{}, fmt.Errorf("parse payment date: %w", err)
	}
	p.Date = d
	return p, nil
}

// --- savings goals ---

func (s *Store) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, category_id, name, target_cents)
		 VALUES (?, ?, ?, ?)`,
		g.UserID, g.CategoryID, g.Name, g.Target.Cents)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE savings_goals SET category_id = ?, name = ?, target_cents = ? WHERE id = ?`,
		g.CategoryID, g.Name, g.Target.Cents, g.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) DeleteSavingsGoal(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

const goalColumns = `g.id, g.user_id, g.category_id, c.name, g.name, g.target_cents,
	COALESCE((SELECT SUM(t.amount_cents) FROM contributions t WHERE t.goal_id = g.id), 0)`

func scanGoal(scan func(...any) error) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	if err := scan(&g.ID, &g.UserID, &g.CategoryID, &g.CategoryName, &g.Name,
		&g.Target.Cents, &g.TotalSaved.Cents); err != nil {
		return core.SavingsGoal{}, mapErr(err)
	}
	return g, nil
}

func (s *Store) SavingsGoalByID(ctx context.Context, id int64) (core.SavingsGoal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+`
		 FROM savings_goals g JOIN categories c ON c.id = g.category_id
		 WHERE g.id = ?`, id)
	g, err := scanGoal(row.Scan)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, goal_id, amount_cents, date FROM contributions
		 WHERE goal_id = ? ORDER BY date DESC, id DESC`, id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var con core.Contribution
		var date string
		if err := rows.Scan(&con.ID, &con.GoalID, &con.Amount.Cents, &date); err != nil {
			return core.SavingsGoal{}, err
		}
		cd, err := parseDate(date)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse contribution date: %w", err)
		}
		con.Date = cd
		g.Contributions = append(g.Contributions, con)
	}
	return g, rows.Err()
}

func (s *Store) SavingsGoals(ctx context.Context, f storage.Filter) ([]core.SavingsGoal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+`
		 FROM savings_goals g JOIN categories c ON c.id = g.category_id
		 WHERE g.user_id = ? AND (g.name LIKE ? OR c.name LIKE ?)
		 ORDER BY g.id DESC
		 LIMIT ? OFFSET ?`,
		f.UserID, likePattern(f.Query), likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) CountSavingsGoals(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM savings_goals g JOIN categories c ON c.id = g.category_id
		 WHERE g.user_id = ? AND (g.name LIKE ? OR c.name LIKE ?)`,
		f.UserID, likePattern(f.Query), likePattern(f.Query)).Scan(&n)
	return n, err
}

func (s *Store) CreateContribution(ctx context.Context, c core.Contribution) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contributions (goal_id, amount_cents, date) VALUES (?, ?, ?)`,
		c.GoalID, c.Amount.Cents, fmtDate(c.Date))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.LastInsertId()
}

func (s *Store) DeleteContribution(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (s *Store) ContributionByID(ctx context.Context, id int64) (core.Contribution, error) {
	var c core.Contribution
	var date string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, goal_id, amount_cents, date FROM contributions WHERE id = ?`, id).
		Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &date)
	if err != nil {
		return core.Contribution{}, mapErr(err)
	}
	d, err := parseDate(date)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("parse contribution date: %w", err)
	}
	c.Date = d
	return c, nil
}

// --- report reads ---

func (s *Store) monthTotals(ctx context.Context, table string, userID int64, from, to string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year_month, SUM(amount_cents) FROM `+table+`
		 WHERE user_id = ? AND year_month >= ? AND year_month <= ?
		 GROUP BY year_month`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[string]int64)
	for rows.Next() {
		var ym string
		var total int64
		if err := rows.Scan(&ym, &total); err != nil {
			return nil, err
		}
		totals[ym] = total
	}
	return totals, rows.Err()
}

func (s *Store) MonthlyExpenseTotals(ctx context.Context, userID int64, from, to string) (map[string]int64, error) {
	return s.monthTotals(ctx, "expenses", userID, from, to)
}

func (s *Store) MonthlyIncomeTotals(ctx context.Context, userID int64, from, to string) (map[string]int64, error) {
	return s.monthTotals(ctx, "incomes", userID, from, to)
}

func (s *Store) MonthSummary(ctx context.Context, userID int64, yearMonth string) (core.MonthSummary, error) {
	sum := core.MonthSummary{UserID: userID, YearMonth: yearMonth}
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE((SELECT SUM(amount_cents) FROM expenses WHERE user_id = ? AND year_month = ?), 0),
			COALESCE((SELECT SUM(amount_cents) FROM incomes WHERE user_id = ? AND year_month = ?), 0),
			COALESCE((SELECT SUM(amount_cents) FROM budgets WHERE user_id = ? AND year_month = ?), 0)`,
		userID, yearMonth, userID, yearMonth, userID, yearMonth).
		Scan(&sum.ExpenseTotal.Cents, &sum.IncomeTotal.Cents, &sum.BudgetTotal.Cents)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return sum, nil
}

func (s *Store) BudgetUsage(ctx context.Context, userID int64, yearMonth string) ([]core.BudgetUsage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.category_id, c.name, b.amount_cents,
			COALESCE((SELECT SUM(e.amount_cents) FROM expenses e
				WHERE e.user_id = b.user_id AND e.category_id = b.category_id AND e.year_month = ?), 0)
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = ?
		 ORDER BY c.name`, yearMonth, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.BudgetUsage
	for rows.Next() {
		var u core.BudgetUsage
		if err := rows.Scan(&u.CategoryID, &u.CategoryName, &u.Allocated.Cents, &u.Spent.Cents); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Package postgres is the pgx-backed store for multi-instance deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open migrates the schema and opens the connection pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := storage.RunPostgresMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapErr converts pgx errors into the storage sentinels. 23505 is
// unique_violation, 23503 foreign_key_violation.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503":
			return storage.ErrConflict
		}
	}
	return err
}

func likePattern(query string) string {
	return "%" + query + "%"
}

func checkAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u core.User) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		strings.ToLower(u.Email), u.Name, u.PasswordHash).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(email)).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return core.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return core.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
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
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (user_id, name) VALUES ($1, $2) RETURNING id`,
		c.UserID, c.Name).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE categories SET name = $1 WHERE id = $2`, c.Name, c.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) CategoryByID(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name)
	if err != nil {
		return core.Category{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) Categories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = $1 ORDER BY name`, userID)
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
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO budgets (user_id, category_id, amount_cents, year_month)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		b.UserID, b.CategoryID, b.Amount.Cents, b.YearMonth).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE budgets SET amount_cents = $1, year_month = $2 WHERE id = $3`,
		b.Amount.Cents, b.YearMonth, b.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) BudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	var b core.Budget
	err := s.pool.QueryRow(ctx,
		`SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.year_month
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.id = $1`, id).
		Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.Amount.Cents, &b.YearMonth)
	if err != nil {
		return core.Budget{}, mapErr(err)
	}
	return b, nil
}

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
		 WHERE b.user_id = $1 AND c.name ILIKE $2
		 ORDER BY b.year_month DESC, b.id DESC
		 LIMIT $3 OFFSET $4`,
		f.UserID, likePattern(f.Query), storage.PageSize, f.Offset())
}

func (s *Store) CountBudgets(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = $1 AND c.name ILIKE $2`,
		f.UserID, likePattern(f.Query)).Scan(&n)
	return n, err
}

func (s *Store) BudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.year_month
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = $1
		 ORDER BY b.year_month DESC, b.id DESC`, userID)
}

// --- expenses ---

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, category_id, name, amount_cents, date, year_month)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.UserID, e.CategoryID, e.Name, e.Amount.Cents, e.Date, e.YearMonth).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE expenses SET category_id = $1, name = $2, amount_cents = $3, date = $4, year_month = $5
		 WHERE id = $6`,
		e.CategoryID, e.Name, e.Amount.Cents, e.Date, e.YearMonth, e.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) ExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	var e core.Expense
	err := s.pool.QueryRow(ctx,
		`SELECT e.id, e.user_id, e.category_id, c.name, e.name, e.amount_cents, e.date, e.year_month
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.id = $1`, id).
		Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName, &e.Name,
			&e.Amount.Cents, &e.Date, &e.YearMonth)
	if err != nil {
		return core.Expense{}, mapErr(err)
	}
	return e, nil
}

func (s *Store) Expenses(ctx context.Context, f storage.Filter) ([]core.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.user_id, e.category_id, c.name, e.name, e.amount_cents, e.date, e.year_month
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = $1 AND (e.name ILIKE $2 OR c.name ILIKE $2)
		 ORDER BY e.date DESC, e.id DESC
		 LIMIT $3 OFFSET $4`,
		f.UserID, likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName, &e.Name,
			&e.Amount.Cents, &e.Date, &e.YearMonth); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CountExpenses(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = $1 AND (e.name ILIKE $2 OR c.name ILIKE $2)`,
		f.UserID, likePattern(f.Query)).Scan(&n)
	return n, err
}

// --- incomes ---

func (s *Store) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO incomes (user_id, category_id, name, amount_cents, income_type, frequency, start_date, end_date, year_month)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		in.UserID, in.CategoryID, in.Name, in.Amount.Cents, string(in.Type),
		nullFrequency(in.Frequency), in.StartDate, nullDate(in.EndDate), in.YearMonth).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE incomes SET category_id = $1, name = $2, amount_cents = $3, income_type = $4,
		 frequency = $5, start_date = $6, end_date = $7, year_month = $8
		 WHERE id = $9`,
		in.CategoryID, in.Name, in.Amount.Cents, string(in.Type),
		nullFrequency(in.Frequency), in.StartDate, nullDate(in.EndDate), in.YearMonth, in.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM incomes WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func nullFrequency(f core.Frequency) *string {
	if f == "" {
		return nil
	}
	s := string(f)
	return &s
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const incomeColumns = `i.id, i.user_id, i.category_id, c.name, i.name, i.amount_cents,
	i.income_type, i.frequency, i.start_date, i.end_date, i.year_month`

func scanIncome(row pgx.Row) (core.Income, error) {
	var in core.Income
	var incomeType string
	var freq *string
	var end *time.Time
	if err := row.Scan(&in.ID, &in.UserID, &in.CategoryID, &in.CategoryName, &in.Name,
		&in.Amount.Cents, &incomeType, &freq, &in.StartDate, &end, &in.YearMonth); err != nil {
		return core.Income{}, mapErr(err)
	}
	in.Type = core.IncomeType(incomeType)
	if freq != nil {
		in.Frequency = core.Frequency(*freq)
	}
	if end != nil {
		in.EndDate = *end
	}
	return in, nil
}

func (s *Store) IncomeByID(ctx context.Context, id int64) (core.Income, error) {
	return scanIncome(s.pool.QueryRow(ctx,
		`SELECT `+incomeColumns+`
		 FROM incomes i JOIN categories c ON c.id = i.category_id
		 WHERE i.id = $1`, id))
}

func (s *Store) Incomes(ctx context.Context, f storage.Filter) ([]core.Income, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+incomeColumns+`
		 FROM incomes i JOIN categories c ON c.id = i.category_id
		 WHERE i.user_id = $1 AND (i.name ILIKE $2 OR c.name ILIKE $2)
		 ORDER BY i.start_date DESC, i.id DESC
		 LIMIT $3 OFFSET $4`,
		f.UserID, likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) CountIncomes(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM incomes i JOIN categories c ON c.id = i.category_id
		 WHERE i.user_id = $1 AND (i.name ILIKE $2 OR c.name ILIKE $2)`,
		f.UserID, likePattern(f.Query)).Scan(&n)
	return n, err
}

// --- debts ---

func (s *Store) CreateDebt(ctx context.Context, d core.Debt) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO debts (user_id, category_id, name, amount_cents, interest_rate)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		d.UserID, d.CategoryID, d.Name, d.Amount.Cents, d.InterestRate).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateDebt(ctx context.Context, d core.Debt) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE debts SET category_id = $1, name = $2, amount_cents = $3, interest_rate = $4
		 WHERE id = $5`,
		d.CategoryID, d.Name, d.Amount.Cents, d.InterestRate, d.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DeleteDebt(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

const debtColumns = `d.id, d.user_id, d.category_id, c.name, d.name, d.amount_cents, d.interest_rate,
	COALESCE((SELECT SUM(p.amount_cents) FROM debt_payments p WHERE p.debt_id = d.id), 0)`

func scanDebt(row pgx.Row) (core.Debt, error) {
	var d core.Debt
	if err := row.Scan(&d.ID, &d.UserID, &d.CategoryID, &d.CategoryName, &d.Name,
		&d.Amount.Cents, &d.InterestRate, &d.TotalPaid.Cents); err != nil {
		return core.Debt{}, mapErr(err)
	}
	return d, nil
}

func (s *Store) DebtByID(ctx context.Context, id int64) (core.Debt, error) {
	d, err := scanDebt(s.pool.QueryRow(ctx,
		`SELECT `+debtColumns+`
		 FROM debts d JOIN categories c ON c.id = d.category_id
		 WHERE d.id = $1`, id))
	if err != nil {
		return core.Debt{}, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, debt_id, amount_cents, date FROM debt_payments
		 WHERE debt_id = $1 ORDER BY date DESC, id DESC`, id)
	if err != nil {
		return core.Debt{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p core.DebtPayment
		if err := rows.Scan(&p.ID, &p.DebtID, &p.Amount.Cents, &p.Date); err != nil {
			return core.Debt{}, err
		}
		d.Payments = append(d.Payments, p)
	}
	return d, rows.Err()
}

func (s *Store) Debts(ctx context.Context, f storage.Filter) ([]core.Debt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+debtColumns+`
		 FROM debts d JOIN categories c ON c.id = d.category_id
		 WHERE d.user_id = $1 AND (d.name ILIKE $2 OR c.name ILIKE $2)
		 ORDER BY d.id DESC
		 LIMIT $3 OFFSET $4`,
		f.UserID, likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CountDebts(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM debts d JOIN categories c ON c.id = d.category_id
		 WHERE d.user_id = $1 AND (d.name ILIKE $2 OR c.name ILIKE $2)`,
		f.UserID, likePattern(f.Query)).Scan(&n)
	return n, err
}

func (s *Store) CreateDebtPayment(ctx context.Context, p core.DebtPayment) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO debt_payments (debt_id, amount_cents, date) VALUES ($1, $2, $3) RETURNING id`,
		p.DebtID, p.Amount.Cents, p.Date).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) DeleteDebtPayment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM debt_payments WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DebtPaymentByID(ctx context.Context, id int64) (core.DebtPayment, error) {
	var p core.DebtPayment
	err := s.pool.QueryRow(ctx,
		`SELECT id, debt_id, amount_cents, date FROM debt_payments WHERE id = $1`, id).
		Scan(&p.ID, &p.DebtID, &p.Amount.Cents, &p.Date)
	if err != nil {
		return core.DebtPayment{}, mapErr(err)
	}
	return p, nil
}

// --- savings goals ---

func (s *Store) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO savings_goals (user_id, category_id, name, target_cents)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		g.UserID, g.CategoryID, g.Name, g.Target.Cents).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE savings_goals SET category_id = $1, name = $2, target_cents = $3 WHERE id = $4`,
		g.CategoryID, g.Name, g.Target.Cents, g.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) DeleteSavingsGoal(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM savings_goals WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

const goalColumns = `g.id, g.user_id, g.category_id, c.name, g.name, g.target_cents,
	COALESCE((SELECT SUM(t.amount_cents) FROM contributions t WHERE t.goal_id = g.id), 0)`

func scanGoal(row pgx.Row) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	if err := row.Scan(&g.ID, &g.UserID, &g.CategoryID, &g.CategoryName, &g.Name,
		&g.Target.Cents, &g.TotalSaved.Cents); err != nil {
		return core.SavingsGoal{}, mapErr(err)
	}
	return g, nil
}

func (s *Store) SavingsGoalByID(ctx context.Context, id int64) (core.SavingsGoal, error) {
	g, err := scanGoal(s.pool.QueryRow(ctx,
		`SELECT `+goalColumns+`
		 FROM savings_goals g JOIN categories c ON c.id = g.category_id
		 WHERE g.id = $1`, id))
	if err != nil {
		return core.SavingsGoal{}, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, goal_id, amount_cents, date FROM contributions
		 WHERE goal_id = $1 ORDER BY date DESC, id DESC`, id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c core.Contribution
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &c.Date); err != nil {
			return core.SavingsGoal{}, err
		}
		g.Contributions = append(g.Contributions, c)
	}
	return g, rows.Err()
}

func (s *Store) SavingsGoals(ctx context.Context, f storage.Filter) ([]core.SavingsGoal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+goalColumns+`
		 FROM savings_goals g JOIN categories c ON c.id = g.category_id
		 WHERE g.user_id = $1 AND (g.name ILIKE $2 OR c.name ILIKE $2)
		 ORDER BY g.id DESC
		 LIMIT $3 OFFSET $4`,
		f.UserID, likePattern(f.Query), storage.PageSize, f.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) CountSavingsGoals(ctx context.Context, f storage.Filter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM savings_goals g JOIN categories c ON c.id = g.category_id
		 WHERE g.user_id = $1 AND (g.name ILIKE $2 OR c.name ILIKE $2)`,
		f.UserID, likePattern(f.Query)).Scan(&n)
	return n, err
}

func (s *Store) CreateContribution(ctx context.Context, c core.Contribution) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contributions (goal_id, amount_cents, date) VALUES ($1, $2, $3) RETURNING id`,
		c.GoalID, c.Amount.Cents, c.Date).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

func (s *Store) DeleteContribution(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contributions WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(tag)
}

func (s *Store) ContributionByID(ctx context.Context, id int64) (core.Contribution, error) {
	var c core.Contribution
	err := s.pool.QueryRow(ctx,
		`SELECT id, goal_id, amount_cents, date FROM contributions WHERE id = $1`, id).
		Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &c.Date)
	if err != nil {
		return core.Contribution{}, mapErr(err)
	}
	return c, nil
}

// --- report reads ---

func (s *Store) monthTotals(ctx context.Context, table string, userID int64, from, to string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year_month, SUM(amount_cents) FROM `+table+`
		 WHERE user_id = $1 AND year_month >= $2 AND year_month <= $3
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
	err := s.pool.QueryRow(ctx,
		`SELECT
			COALESCE((SELECT SUM(amount_cents) FROM expenses WHERE user_id = $1 AND year_month = $2), 0),
			COALESCE((SELECT SUM(amount_cents) FROM incomes WHERE user_id = $1 AND year_month = $2), 0),
			COALESCE((SELECT SUM(amount_cents) FROM budgets WHERE user_id = $1 AND year_month = $2), 0)`,
		userID, yearMonth).
		Scan(&sum.ExpenseTotal.Cents, &sum.IncomeTotal.Cents, &sum.BudgetTotal.Cents)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return sum, nil
}

func (s *Store) BudgetUsage(ctx context.Context, userID int64, yearMonth string) ([]core.BudgetUsage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT b.category_id, c.name, b.amount_cents,
			COALESCE((SELECT SUM(e.amount_cents) FROM expenses e
				WHERE e.user_id = b.user_id AND e.category_id = b.category_id AND e.year_month = $1), 0)
		 FROM budgets b JOIN categories c ON c.id = b.category_id
		 WHERE b.user_id = $2
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

// Package memory is the in-process store backend. It is the default for
// zero-config runs and the storage double used by the test suites; its
// behavior mirrors the database backends including conflict and ownership
// semantics.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64

	users         map[int64]core.User
	categories    map[int64]core.Category
	budgets       map[int64]core.Budget
	expenses      map[int64]core.Expense
	incomes       map[int64]core.Income
	debts         map[int64]core.Debt
	payments      map[int64]core.DebtPayment
	goals         map[int64]core.SavingsGoal
	contributions map[int64]core.Contribution
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         make(map[int64]core.User),
		categories:    make(map[int64]core.Category),
		budgets:       make(map[int64]core.Budget),
		expenses:      make(map[int64]core.Expense),
		incomes:       make(map[int64]core.Income),
		debts:         make(map[int64]core.Debt),
		payments:      make(map[int64]core.DebtPayment),
		goals:         make(map[int64]core.SavingsGoal),
		contributions: make(map[int64]core.Contribution),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// matches implements the case-insensitive substring filter over the entity
// name and its category name.
func matches(query string, names ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), q) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, f storage.Filter) []T {
	off := f.Offset()
	if off >= len(items) {
		return nil
	}
	end := off + storage.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, storage.ErrConflict
		}
	}
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// --- categories ---

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.UserID == c.UserID && strings.EqualFold(existing.Name, c.Name) {
			return 0, storage.ErrConflict
		}
	}
	c.ID = s.id()
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = c.Name
	s.categories[c.ID] = existing
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return storage.ErrNotFound
	}
	for _, b := range s.budgets {
		if b.CategoryID == id {
			return storage.ErrConflict
		}
	}
	for _, e := range s.expenses {
		if e.CategoryID == id {
			return storage.ErrConflict
		}
	}
	for _, in := range s.incomes {
		if in.CategoryID == id {
			return storage.ErrConflict
		}
	}
	for _, d := range s.debts {
		if d.CategoryID == id {
			return storage.ErrConflict
		}
	}
	for _, g := range s.goals {
		if g.CategoryID == id {
			return storage.ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CategoryByID(ctx context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) Categories(ctx context.Context, userID int64) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) categoryName(id int64) string {
	if c, ok := s.categories[id]; ok {
		return c.Name
	}
	return ""
}

// --- budgets ---

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.budgets {
		if existing.CategoryID == b.CategoryID {
			return 0, storage.ErrConflict
		}
	}
	b.ID = s.id()
	s.budgets[b.ID] = b
	return b.ID, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[b.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Amount = b.Amount
	existing.YearMonth = b.YearMonth
	s.budgets[b.ID] = existing
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) BudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, storage.ErrNotFound
	}
	b.CategoryName = s.categoryName(b.CategoryID)
	return b, nil
}

func (s *Store) budgetRows(f storage.Filter) []core.Budget {
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID != f.UserID {
			continue
		}
		b.CategoryName = s.categoryName(b.CategoryID)
		if !matches(f.Query, b.CategoryName) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].YearMonth != out[j].YearMonth {
			return out[i].YearMonth > out[j].YearMonth
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Budgets(ctx context.Context, f storage.Filter) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.budgetRows(f), f), nil
}

func (s *Store) CountBudgets(ctx context.Context, f storage.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.budgetRows(f)), nil
}

func (s *Store) BudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgetRows(storage.Filter{UserID: userID}), nil
}

// --- expenses ---

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.expenses[e.ID] = e
	return e.ID, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[e.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = e.Name
	existing.Amount = e.Amount
	existing.CategoryID = e.CategoryID
	existing.Date = e.Date
	existing.YearMonth = e.YearMonth
	s.expenses[e.ID] = existing
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	e.CategoryName = s.categoryName(e.CategoryID)
	return e, nil
}

func (s *Store) expenseRows(f storage.Filter) []core.Expense {
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID != f.UserID {
			continue
		}
		e.CategoryName = s.categoryName(e.CategoryID)
		if !matches(f.Query, e.Name, e.CategoryName) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Expenses(ctx context.Context, f storage.Filter) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.expenseRows(f), f), nil
}

func (s *Store) CountExpenses(ctx context.Context, f storage.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expenseRows(f)), nil
}

// --- incomes ---

func (s *Store) CreateIncome(ctx context.Context, in core.Income) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = s.id()
	s.incomes[in.ID] = in
	return in.ID, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.incomes[in.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = in.Name
	existing.Amount = in.Amount
	existing.CategoryID = in.CategoryID
	existing.Type = in.Type
	existing.Frequency = in.Frequency
	existing.StartDate = in.StartDate
	existing.EndDate = in.EndDate
	existing.YearMonth = in.YearMonth
	s.incomes[in.ID] = existing
	return nil
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) IncomeByID(ctx context.Context, id int64) (core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.incomes[id]
	if !ok {
		return core.Income{}, storage.ErrNotFound
	}
	in.CategoryName = s.categoryName(in.CategoryID)
	return in, nil
}

func (s *Store) incomeRows(f storage.Filter) []core.Income {
	var out []core.Income
	for _, in := range s.incomes {
		if in.UserID != f.UserID {
			continue
		}
		in.CategoryName = s.categoryName(in.CategoryID)
		if !matches(f.Query, in.Name, in.CategoryName) {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Incomes(ctx context.Context, f storage.Filter) ([]core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.incomeRows(f), f), nil
}

func (s *Store) CountIncomes(ctx context.Context, f storage.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incomeRows(f)), nil
}

// --- debts ---

func (s *Store) CreateDebt(ctx context.Context, d core.Debt) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	d.Payments = nil
	s.debts[d.ID] = d
	return d.ID, nil
}

func (s *Store) UpdateDebt(ctx context.Context, d core.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.debts[d.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = d.Name
	existing.Amount = d.Amount
	existing.CategoryID = d.CategoryID
	existing.InterestRate = d.InterestRate
	s.debts[d.ID] = existing
	return nil
}

func (s *Store) DeleteDebt(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.debts, id)
	for pid, p := range s.payments {
		if p.DebtID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) debtPayments(debtID int64) []core.DebtPayment {
	var out []core.DebtPayment
	for _, p := range s.payments {
		if p.DebtID == debtID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func sumPayments(payments []core.DebtPayment) core.Money {
	var total int64
	for _, p := range payments {
		total += p.Amount.Cents
	}
	return core.Money{Cents: total}
}

func (s *Store) DebtByID(ctx context.Context, id int64) (core.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.debts[id]
	if !ok {
		return core.Debt{}, storage.ErrNotFound
	}
	d.CategoryName = s.categoryName(d.CategoryID)
	d.Payments = s.debtPayments(id)
	d.TotalPaid = sumPayments(d.Payments)
	return d, nil
}

func (s *Store) debtRows(f storage.Filter) []core.Debt {
	var out []core.Debt
	for _, d := range s.debts {
		if d.UserID != f.UserID {
			continue
		}
		d.CategoryName = s.categoryName(d.CategoryID)
		if !matches(f.Query, d.Name, d.CategoryName) {
			continue
		}
		d.TotalPaid = sumPayments(s.debtPayments(d.ID))
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) Debts(ctx context.Context, f storage.Filter) ([]core.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.debtRows(f), f), nil
}

func (s *Store) CountDebts(ctx context.Context, f storage.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.debtRows(f)), nil
}

func (s *Store) CreateDebtPayment(ctx context.Context, p core.DebtPayment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debts[p.DebtID]; !ok {
		return 0, storage.ErrNotFound
	}
	p.ID = s.id()
	s.payments[p.ID] = p
	return p.ID, nil
}

func (s *Store) DeleteDebtPayment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *Store) DebtPaymentByID(ctx context.Context, id int64) (core.DebtPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return core.DebtPayment{}, storage.ErrNotFound
	}
	return p, nil
}

// --- savings goals ---

func (s *Store) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	g.Contributions = nil
	s.goals[g.ID] = g
	return g.ID, nil
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[g.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = g.Name
	existing.Target = g.Target
	existing.CategoryID = g.CategoryID
	s.goals[g.ID] = existing
	return nil
}

func (s *Store) DeleteSavingsGoal(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.goals, id)
	for cid, c := range s.contributions {
		if c.GoalID == id {
			delete(s.contributions, cid)
		}
	}
	return nil
}

func (s *Store) goalContributions(goalID int64) []core.Contribution {
	var out []core.Contribution
	for _, c := range s.contributions {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func sumContributions(contribs []core.Contribution) core.Money {
	var total int64
	for _, c := range contribs {
		total += c.Amount.Cents
	}
	return core.Money{Cents: total}
}

func (s *Store) SavingsGoalByID(ctx context.Context, id int64) (core.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[id]
	if !ok {
		return core.SavingsGoal{}, storage.ErrNotFound
	}
	g.CategoryName = s.categoryName(g.CategoryID)
	g.Contributions = s.goalContributions(id)
	g.TotalSaved = sumContributions(g.Contributions)
	return g, nil
}

func (s *Store) goalRows(f storage.Filter) []core.SavingsGoal {
	var out []core.SavingsGoal
	for _, g := range s.goals {
		if g.UserID != f.UserID {
			continue
		}
		g.CategoryName = s.categoryName(g.CategoryID)
		if !matches(f.Query, g.Name, g.CategoryName) {
			continue
		}
		g.TotalSaved = sumContributions(s.goalContributions(g.ID))
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) SavingsGoals(ctx context.Context, f storage.Filter) ([]core.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.goalRows(f), f), nil
}

func (s *Store) CountSavingsGoals(ctx context.Context, f storage.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.goalRows(f)), nil
}

func (s *Store) CreateContribution(ctx context.Context, c core.Contribution) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[c.GoalID]; !ok {
		return 0, storage.ErrNotFound
	}
	c.ID = s.id()
	s.contributions[c.ID] = c
	return c.ID, nil
}

func (s *Store) DeleteContribution(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contributions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.contributions, id)
	return nil
}

func (s *Store) ContributionByID(ctx context.Context, id int64) (core.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contributions[id]
	if !ok {
		return core.Contribution{}, storage.ErrNotFound
	}
	return c, nil
}

// --- report reads ---

func (s *Store) MonthlyExpenseTotals(ctx context.Context, userID int64, from, to string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]int64)
	for _, e := range s.expenses {
		if e.UserID == userID && e.YearMonth >= from && e.YearMonth <= to {
			totals[e.YearMonth] += e.Amount.Cents
		}
	}
	return totals, nil
}

func (s *Store) MonthlyIncomeTotals(ctx context.Context, userID int64, from, to string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]int64)
	for _, in := range s.incomes {
		if in.UserID == userID && in.YearMonth >= from && in.YearMonth <= to {
			totals[in.YearMonth] += in.Amount.Cents
		}
	}
	return totals, nil
}

func (s *Store) MonthSummary(ctx context.Context, userID int64, yearMonth string) (core.MonthSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := core.MonthSummary{UserID: userID, YearMonth: yearMonth}
	for _, e := range s.expenses {
		if e.UserID == userID && e.YearMonth == yearMonth {
			sum.ExpenseTotal.Cents += e.Amount.Cents
		}
	}
	for _, in := range s.incomes {
		if in.UserID == userID && in.YearMonth == yearMonth {
			sum.IncomeTotal.Cents += in.Amount.Cents
		}
	}
	for _, b := range s.budgets {
		if b.UserID == userID && b.YearMonth == yearMonth {
			sum.BudgetTotal.Cents += b.Amount.Cents
		}
	}
	return sum, nil
}

func (s *Store) BudgetUsage(ctx context.Context, userID int64, yearMonth string) ([]core.BudgetUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.BudgetUsage
	for _, b := range s.budgets {
		if b.UserID != userID {
			continue
		}
		usage := core.BudgetUsage{
			CategoryID:   b.CategoryID,
			CategoryName: s.categoryName(b.CategoryID),
			Allocated:    b.Amount,
		}
		for _, e := range s.expenses {
			if e.UserID == userID && e.CategoryID == b.CategoryID && e.YearMonth == yearMonth {
				usage.Spent.Cents += e.Amount.Cents
			}
		}
		out = append(out, usage)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

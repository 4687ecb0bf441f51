package database

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
)

type memData struct {
	nextID       int64
	accounts     map[int64]models.Account
	pillars      map[int64]models.Pillar
	transfers    []models.PillarTransfer
	categories   map[int64]models.Category
	transactions map[int64]models.Transaction
	months       map[int64]models.ForecastMonth
	lines        map[int64]models.ForecastLine
	taxSettings  map[int]models.TaxSettings
	deadlines    map[int64]models.TaxDeadline
	planned      map[int64]models.PlannedExpense
	settings     *models.UserSettings
}

func newMemData() *memData {
	return &memData{
		accounts:     make(map[int64]models.Account),
		pillars:      make(map[int64]models.Pillar),
		categories:   make(map[int64]models.Category),
		transactions: make(map[int64]models.Transaction),
		months:       make(map[int64]models.ForecastMonth),
		lines:        make(map[int64]models.ForecastLine),
		taxSettings:  make(map[int]models.TaxSettings),
		deadlines:    make(map[int64]models.TaxDeadline),
		planned:      make(map[int64]models.PlannedExpense),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:       d.nextID,
		accounts:     cloneMap(d.accounts),
		pillars:      cloneMap(d.pillars),
		transfers:    slices.Clone(d.transfers),
		categories:   make(map[int64]models.Category, len(d.categories)),
		transactions: cloneMap(d.transactions),
		months:       cloneMap(d.months),
		lines:        cloneMap(d.lines),
		taxSettings:  cloneMap(d.taxSettings),
		deadlines:    cloneMap(d.deadlines),
		planned:      cloneMap(d.planned),
	}
	for id, cat := range d.categories {
		c.categories[id] = copyCategory(cat)
	}
	if d.settings != nil {
		s := *d.settings
		c.settings = &s
	}
	return c
}

func (d *memData) id() int64 {
	d.nextID++
	return d.nextID
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyCategory(c models.Category) models.Category {
	c.Keywords = slices.Clone(c.Keywords)
	return c
}

// MemoryStore keeps the ledger in process memory guarded by one RWMutex.
// Transactions run against a snapshot that replaces the live data on success.
type MemoryStore struct {
	mu   *sync.RWMutex
	data *memData
	inTx bool
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.RWMutex{},
		data: newMemData(),
		now:  time.Now,
	}
}

func (s *MemoryStore) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{mu: s.mu, data: s.data.clone(), inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// Accounts

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	defer s.rlock()()
	out := make([]models.Account, 0, len(s.data.accounts))
	for _, a := range s.data.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, a *models.Account) error {
	defer s.lock()()
	a.ID = s.data.id()
	a.CreatedAt = s.now()
	s.data.accounts[a.ID] = *a
	return nil
}

// Pillars

func (s *MemoryStore) ListPillars(ctx context.Context) ([]models.Pillar, error) {
	defer s.rlock()()
	out := make([]models.Pillar, 0, len(s.data.pillars))
	for _, p := range s.data.pillars {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) GetPillar(ctx context.Context, id int64) (*models.Pillar, error) {
	defer s.rlock()()
	p, ok := s.data.pillars[id]
	if !ok {
		return nil, models.NotFoundf("pillar %d", id)
	}
	return &p, nil
}

func (s *MemoryStore) GetPillarForUpdate(ctx context.Context, id int64) (*models.Pillar, error) {
	return s.GetPillar(ctx, id)
}

func (s *MemoryStore) GetPillarByNumber(ctx context.Context, number int) (*models.Pillar, error) {
	defer s.rlock()()
	for _, p := range s.data.pillars {
		if p.Number == number {
			return &p, nil
		}
	}
	return nil, models.NotFoundf("pillar number %d", number)
}

func (s *MemoryStore) CreatePillar(ctx context.Context, p *models.Pillar) error {
	defer s.lock()()
	for _, existing := range s.data.pillars {
		if existing.Number == p.Number {
			return models.Invalidf("pillar number %d already exists", p.Number)
		}
	}
	p.ID = s.data.id()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.data.pillars[p.ID] = *p
	return nil
}

func (s *MemoryStore) UpdatePillar(ctx context.Context, p *models.Pillar) error {
	defer s.lock()()
	if _, ok := s.data.pillars[p.ID]; !ok {
		return models.NotFoundf("pillar %d", p.ID)
	}
	p.UpdatedAt = s.now()
	s.data.pillars[p.ID] = *p
	return nil
}

func (s *MemoryStore) CreatePillarTransfer(ctx context.Context, t *models.PillarTransfer) error {
	defer s.lock()()
	t.ID = s.data.id()
	t.CreatedAt = s.now()
	s.data.transfers = append(s.data.transfers, *t)
	return nil
}

func (s *MemoryStore) ListPillarTransfers(ctx context.Context) ([]models.PillarTransfer, error) {
	defer s.rlock()()
	return slices.Clone(s.data.transfers), nil
}

// Categories

func (s *MemoryStore) ListCategories(ctx context.Context, filter CategoryFilter) ([]models.Category, error) {
	defer s.rlock()()
	out := make([]models.Category, 0, len(s.data.categories))
	for _, c := range s.data.categories {
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		out = append(out, copyCategory(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	defer s.rlock()()
	c, ok := s.data.categories[id]
	if !ok {
		return nil, models.NotFoundf("category %d", id)
	}
	c = copyCategory(c)
	return &c, nil
}

func (s *MemoryStore) CreateCategory(ctx context.Context, c *models.Category) error {
	defer s.lock()()
	c.ID = s.data.id()
	c.CreatedAt = s.now()
	s.data.categories[c.ID] = copyCategory(*c)
	return nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	defer s.lock()()
	if _, ok := s.data.categories[c.ID]; !ok {
		return models.NotFoundf("category %d", c.ID)
	}
	s.data.categories[c.ID] = copyCategory(*c)
	return nil
}

// Transactions

func (s *MemoryStore) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	defer s.rlock()()
	out := make([]models.Transaction, 0)
	for _, tx := range s.data.transactions {
		if filter.Matches(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	defer s.rlock()()
	tx, ok := s.data.transactions[id]
	if !ok {
		return nil, models.NotFoundf("transaction %d", id)
	}
	return &tx, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	defer s.lock()()
	tx.ID = s.data.id()
	tx.CreatedAt = s.now()
	s.data.transactions[tx.ID] = *tx
	return nil
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	defer s.lock()()
	if _, ok := s.data.transactions[tx.ID]; !ok {
		return models.NotFoundf("transaction %d", tx.ID)
	}
	s.data.transactions[tx.ID] = *tx
	return nil
}

func (s *MemoryStore) DeleteTransaction(ctx context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.data.transactions[id]; !ok {
		return models.NotFoundf("transaction %d", id)
	}
	delete(s.data.transactions, id)
	return nil
}

func (s *MemoryStore) TransactionExists(ctx context.Context, key models.DuplicateKey) (bool, error) {
	defer s.rlock()()
	for _, tx := range s.data.transactions {
		if models.KeyFor(tx.Date, tx.Amount, tx.OriginalDescription) == key {
			return true, nil
		}
	}
	return false, nil
}

// Forecast

func (s *MemoryStore) GetForecastMonth(ctx context.Context, year, month int) (*models.ForecastMonth, error) {
	defer s.rlock()()
	for _, m := range s.data.months {
		if m.Year == year && m.Month == month {
			return &m, nil
		}
	}
	return nil, models.NotFoundf("forecast %d/%d", month, year)
}

func (s *MemoryStore) ListForecastMonths(ctx context.Context, year int) ([]models.ForecastMonth, error) {
	defer s.rlock()()
	out := make([]models.ForecastMonth, 0, 12)
	for _, m := range s.data.months {
		if m.Year == year {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *MemoryStore) CreateForecastMonth(ctx context.Context, m *models.ForecastMonth) error {
	defer s.lock()()
	for _, existing := range s.data.months {
		if existing.Year == m.Year && existing.Month == m.Month {
			return models.Invalidf("forecast %d/%d already exists", m.Month, m.Year)
		}
	}
	m.ID = s.data.id()
	m.UpdatedAt = s.now()
	stored := *m
	stored.Lines = nil
	s.data.months[m.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateForecastMonth(ctx context.Context, m *models.ForecastMonth) error {
	defer s.lock()()
	if _, ok := s.data.months[m.ID]; !ok {
		return models.NotFoundf("forecast month %d", m.ID)
	}
	m.UpdatedAt = s.now()
	stored := *m
	stored.Lines = nil
	s.data.months[m.ID] = stored
	return nil
}

func (s *MemoryStore) ListForecastLines(ctx context.Context, monthID int64) ([]models.ForecastLine, error) {
	defer s.rlock()()
	out := make([]models.ForecastLine, 0)
	for _, l := range s.data.lines {
		if l.ForecastMonthID == monthID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ReplaceForecastLines(ctx context.Context, monthID int64, lines []models.ForecastLine) error {
	defer s.lock()()
	if _, ok := s.data.months[monthID]; !ok {
		return models.NotFoundf("forecast month %d", monthID)
	}
	for id, l := range s.data.lines {
		if l.ForecastMonthID == monthID {
			delete(s.data.lines, id)
		}
	}
	for i := range lines {
		lines[i].ID = s.data.id()
		lines[i].ForecastMonthID = monthID
		s.data.lines[lines[i].ID] = lines[i]
	}
	return nil
}

func (s *MemoryStore) UpdateForecastLine(ctx context.Context, l *models.ForecastLine) error {
	defer s.lock()()
	if _, ok := s.data.lines[l.ID]; !ok {
		return models.NotFoundf("forecast line %d", l.ID)
	}
	s.data.lines[l.ID] = *l
	return nil
}

// Taxes

func (s *MemoryStore) GetTaxSettings(ctx context.Context, year int) (*models.TaxSettings, error) {
	defer s.rlock()()
	ts, ok := s.data.taxSettings[year]
	if !ok {
		return nil, models.NotFoundf("tax settings %d", year)
	}
	return &ts, nil
}

func (s *MemoryStore) SaveTaxSettings(ctx context.Context, ts *models.TaxSettings) error {
	defer s.lock()()
	if existing, ok := s.data.taxSettings[ts.Year]; ok {
		ts.ID = existing.ID
	} else {
		ts.ID = s.data.id()
	}
	ts.UpdatedAt = s.now()
	s.data.taxSettings[ts.Year] = *ts
	return nil
}

func (s *MemoryStore) ListTaxDeadlines(ctx context.Context, filter DeadlineFilter) ([]models.TaxDeadline, error) {
	defer s.rlock()()
	out := make([]models.TaxDeadline, 0)
	for _, d := range s.data.deadlines {
		if filter.Year != 0 && d.Year != filter.Year {
			continue
		}
		if !filter.DueFrom.IsZero() && d.DueDate.Before(filter.DueFrom) {
			continue
		}
		if !filter.DueTo.IsZero() && !d.DueDate.Before(filter.DueTo) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetTaxDeadline(ctx context.Context, id int64) (*models.TaxDeadline, error) {
	defer s.rlock()()
	d, ok := s.data.deadlines[id]
	if !ok {
		return nil, models.NotFoundf("tax deadline %d", id)
	}
	return &d, nil
}

func (s *MemoryStore) UpdateTaxDeadline(ctx context.Context, d *models.TaxDeadline) error {
	defer s.lock()()
	if _, ok := s.data.deadlines[d.ID]; !ok {
		return models.NotFoundf("tax deadline %d", d.ID)
	}
	s.data.deadlines[d.ID] = *d
	return nil
}

func (s *MemoryStore) ReplaceTaxDeadlines(ctx context.Context, year int, deadlines []models.TaxDeadline) error {
	defer s.lock()()
	for id, d := range s.data.deadlines {
		if d.Year == year {
			delete(s.data.deadlines, id)
		}
	}
	for i := range deadlines {
		deadlines[i].ID = s.data.id()
		deadlines[i].CreatedAt = s.now()
		s.data.deadlines[deadlines[i].ID] = deadlines[i]
	}
	return nil
}

// Planned expenses

func (s *MemoryStore) ListPlannedExpenses(ctx context.Context, includeCompleted bool) ([]models.PlannedExpense, error) {
	defer s.rlock()()
	out := make([]models.PlannedExpense, 0)
	for _, e := range s.data.planned {
		if !includeCompleted && e.IsCompleted {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TargetDate.Equal(out[j].TargetDate) {
			return out[i].TargetDate.Before(out[j].TargetDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetPlannedExpense(ctx context.Context, id int64) (*models.PlannedExpense, error) {
	defer s.rlock()()
	e, ok := s.data.planned[id]
	if !ok {
		return nil, models.NotFoundf("planned expense %d", id)
	}
	return &e, nil
}

func (s *MemoryStore) CreatePlannedExpense(ctx context.Context, e *models.PlannedExpense) error {
	defer s.lock()()
	e.ID = s.data.id()
	e.CreatedAt = s.now()
	s.data.planned[e.ID] = *e
	return nil
}

func (s *MemoryStore) UpdatePlannedExpense(ctx context.Context, e *models.PlannedExpense) error {
	defer s.lock()()
	if _, ok := s.data.planned[e.ID]; !ok {
		return models.NotFoundf("planned expense %d", e.ID)
	}
	s.data.planned[e.ID] = *e
	return nil
}

func (s *MemoryStore) DeletePlannedExpense(ctx context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.data.planned[id]; !ok {
		return models.NotFoundf("planned expense %d", id)
	}
	delete(s.data.planned, id)
	return nil
}

// User settings

func (s *MemoryStore) GetUserSettings(ctx context.Context) (*models.UserSettings, error) {
	defer s.rlock()()
	if s.data.settings == nil {
		return nil, models.NotFoundf("user settings")
	}
	us := *s.data.settings
	return &us, nil
}

func (s *MemoryStore) SaveUserSettings(ctx context.Context, us *models.UserSettings) error {
	defer s.lock()()
	if s.data.settings != nil {
		us.ID = s.data.settings.ID
	} else {
		us.ID = s.data.id()
	}
	us.UpdatedAt = s.now()
	stored := *us
	s.data.settings = &stored
	return nil
}

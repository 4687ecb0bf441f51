package services

import (
	"context"
	"errors"
	"time"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/money"
	"github.com/shopspring/decimal"
)

// ProjectionDefaults are the placeholder income and costs used for months
// that have no stored forecast. They are not derived from any data.
type ProjectionDefaults struct {
	Income decimal.Decimal
	Costs  decimal.Decimal
}

func DefaultProjectionDefaults() ProjectionDefaults {
	return ProjectionDefaults{
		Income: decimal.NewFromInt(3500),
		Costs:  decimal.NewFromInt(2500),
	}
}

// Projection is one month of the liquidity walk.
type Projection struct {
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	MonthName  string          `json:"month_name"`
	Opening    decimal.Decimal `json:"opening"`
	Income     decimal.Decimal `json:"income"`
	Costs      decimal.Decimal `json:"costs"`
	Closing    decimal.Decimal `json:"closing"`
	Cumulative decimal.Decimal `json:"cumulative"`
	// FromForecast is false when the defaults filled the month.
	FromForecast bool `json:"from_forecast"`
}

// maxProjectionMonths bounds how far ahead a projection may walk.
const maxProjectionMonths = 120

type Projector struct {
	store    database.Store
	defaults ProjectionDefaults
	now      func() time.Time
}

func NewProjector(store database.Store, defaults ProjectionDefaults) *Projector {
	return &Projector{store: store, defaults: defaults, now: time.Now}
}

func (p *Projector) WithClock(now func() time.Time) *Projector {
	p.now = now
	return p
}

// ProjectBalance walks the pillar 1 balance forward month by month, starting
// with the current month. startingBalance overrides the pillar balance.
func (p *Projector) ProjectBalance(ctx context.Context, months int, startingBalance *decimal.Decimal) ([]Projection, error) {
	if months < 1 || months > maxProjectionMonths {
		return nil, models.Invalidf("months must be between 1 and %d, got %d", maxProjectionMonths, months)
	}

	balance := money.Zero
	if startingBalance != nil {
		balance = money.Round(*startingBalance)
	} else {
		p1, err := p.store.GetPillarByNumber(ctx, models.PillarLiquidity)
		switch {
		case err == nil:
			balance = p1.CurrentBalance
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}

	today := models.Date(p.now())
	out := make([]Projection, 0, months)
	for i := 0; i < months; i++ {
		year, month := models.AddMonths(today.Year(), int(today.Month()), i)

		proj := Projection{
			Month:     month,
			Year:      year,
			MonthName: models.MonthName(month),
			Opening:   balance,
			Income:    p.defaults.Income,
			Costs:     p.defaults.Costs,
		}
		fm, err := p.store.GetForecastMonth(ctx, year, month)
		switch {
		case err == nil:
			proj.Income = fm.ExpectedIncome
			proj.Costs = fm.ExpectedTotalCosts()
			proj.FromForecast = true
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}

		proj.Closing = proj.Opening.Add(proj.Income).Sub(proj.Costs)
		proj.Cumulative = proj.Closing
		balance = proj.Closing
		out = append(out, proj)
	}
	return out, nil
}

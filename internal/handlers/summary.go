package handlers

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

// TransactionLister is the read side of the ledger
type TransactionLister interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
}

type PillarSummarizer interface {
	Summary(ctx context.Context) (*services.PillarSummary, error)
}

type TaxCoverageReporter interface {
	Coverage(ctx context.Context) (*services.TaxCoverage, error)
}

type ForecastComparer interface {
	Comparison(ctx context.Context, year, month int) (*services.ForecastComparison, error)
}

type SummaryHandler struct {
	transactions TransactionLister
	pillars      PillarSummarizer
	tax          TaxCoverageReporter
	forecast     ForecastComparer
}

func NewSummaryHandler(transactions TransactionLister, pillars PillarSummarizer, tax TaxCoverageReporter, forecast ForecastComparer) *SummaryHandler {
	return &SummaryHandler{
		transactions: transactions,
		pillars:      pillars,
		tax:          tax,
		forecast:     forecast,
	}
}

func (h *SummaryHandler) Register(r fiber.Router) {
	r.Get("/summary", h.GetSummary)
	r.Get("/dashboard", h.GetDashboard)
}

type KPIsResponse struct {
	TotalInflow      decimal.Decimal `json:"total_inflow"`
	TotalOutflow     decimal.Decimal `json:"total_outflow"`
	NetCashFlow      decimal.Decimal `json:"net_cash_flow"`
	TransactionCount int             `json:"transaction_count"`
}

type NetFlowTrendPoint struct {
	Period  string          `json:"period"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	NetFlow decimal.Decimal `json:"net_flow"`
}

type SummaryResponse struct {
	KPIs         KPIsResponse        `json:"kpis"`
	NetFlowTrend []NetFlowTrendPoint `json:"net_flow_trend"`
	FromDate     string              `json:"from_date"`
	ToDate       string              `json:"to_date"`
	GroupBy      string              `json:"group_by"`
}

// DashboardResponse is the home screen: pillars, tax reserve and this month's
// forecast. Forecast is omitted when the month has not been generated.
type DashboardResponse struct {
	Pillars  *services.PillarSummary      `json:"pillars"`
	Tax      *services.TaxCoverage        `json:"tax"`
	Forecast *services.ForecastComparison `json:"forecast,omitempty"`
}

var validGroupBy = map[string]bool{
	"day":   true,
	"week":  true,
	"month": true,
	"year":  true,
}

// GetSummary handles GET /v1/summary
// Query params: from (date), to (date), group_by (day|week|month|year)
func (h *SummaryHandler) GetSummary(c fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	groupBy := c.Query("group_by", "month")

	// Default to last 12 months if not provided
	var fromDate, toDate time.Time
	var err error
	if fromStr == "" || toStr == "" {
		toDate = models.Date(now())
		fromDate = toDate.AddDate(-1, 0, 0)
	} else {
		if fromDate, err = parseDate("from", fromStr); err != nil {
			return err
		}
		if toDate, err = parseDate("to", toStr); err != nil {
			return err
		}
	}
	if toDate.Before(fromDate) {
		return utils.NewBadRequestError("from must not be after to", nil)
	}
	if !validGroupBy[groupBy] {
		return utils.NewBadRequestError("Invalid group_by parameter. Must be one of: day, week, month, year", groupBy)
	}

	txns, err := h.transactions.List(c.Context(), models.TransactionFilter{})
	if err != nil {
		return err
	}

	kpis := KPIsResponse{
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
	}
	buckets := make(map[string]*NetFlowTrendPoint)
	for _, tx := range txns {
		d := models.Date(tx.Date)
		if d.Before(fromDate) || d.After(toDate) {
			continue
		}
		period := formatPeriod(d, groupBy)
		point, ok := buckets[period]
		if !ok {
			point = &NetFlowTrendPoint{Period: period, Inflow: decimal.Zero, Outflow: decimal.Zero}
			buckets[period] = point
		}
		if tx.Amount.IsPositive() {
			kpis.TotalInflow = kpis.TotalInflow.Add(tx.Amount)
			point.Inflow = point.Inflow.Add(tx.Amount)
		} else {
			kpis.TotalOutflow = kpis.TotalOutflow.Add(tx.Amount.Abs())
			point.Outflow = point.Outflow.Add(tx.Amount.Abs())
		}
		kpis.TransactionCount++
	}
	kpis.NetCashFlow = kpis.TotalInflow.Sub(kpis.TotalOutflow)

	trend := make([]NetFlowTrendPoint, 0, len(buckets))
	for _, p := range buckets {
		p.NetFlow = p.Inflow.Sub(p.Outflow)
		trend = append(trend, *p)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Period < trend[j].Period })

	return utils.SuccessResponse(c, SummaryResponse{
		KPIs:         kpis,
		NetFlowTrend: trend,
		FromDate:     fromDate.Format("2006-01-02"),
		ToDate:       toDate.Format("2006-01-02"),
		GroupBy:      groupBy,
	})
}

// GetDashboard handles GET /v1/dashboard
func (h *SummaryHandler) GetDashboard(c fiber.Ctx) error {
	pillars, err := h.pillars.Summary(c.Context())
	if err != nil {
		return err
	}
	coverage, err := h.tax.Coverage(c.Context())
	if err != nil {
		return err
	}

	today := now()
	cmp, err := h.forecast.Comparison(c.Context(), today.Year(), int(today.Month()))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	return utils.SuccessResponse(c, DashboardResponse{
		Pillars:  pillars,
		Tax:      coverage,
		Forecast: cmp,
	})
}

// formatPeriod formats the bucket key for groupBy. Weeks start on Monday.
func formatPeriod(d time.Time, groupBy string) string {
	switch groupBy {
	case "day":
		return d.Format("2006-01-02")
	case "week":
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset).Format("2006-01-02")
	case "year":
		return d.Format("2006")
	default:
		return d.Format("2006-01")
	}
}

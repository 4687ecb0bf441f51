package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/shopspring/decimal"
)

// SeedResult counts what a Seed run created.
type SeedResult struct {
	Accounts     int
	Pillars      int
	Categories   int
	TaxSettings  bool
	UserSettings bool
}

func intPtr(v int) *int { return &v }

var seedPillars = []models.Pillar{
	{
		Number:       models.PillarLiquidity,
		Name:         "liquidita",
		DisplayName:  "Liquidità",
		Description:  "Conto corrente principale per spese quotidiane. Target: almeno 3 mesi di spese.",
		TargetMonths: intPtr(models.DefaultLiquidityMonths),
		Instrument:   "Conto corrente",
		AccountName:  "BBVA",
		Priority:     1,
	},
	{
		Number:       models.PillarEmergency,
		Name:         "emergenza",
		DisplayName:  "Fondo Emergenza",
		Description:  "Fondo per emergenze serie. Target: 3-12 mesi di spese su conto deposito svincolabile.",
		TargetMonths: intPtr(models.DefaultEmergencyMonths),
		Instrument:   "Conto deposito svincolabile",
		AccountName:  "Fineco XEON",
		Priority:     2,
	},
	{
		Number:      models.PillarPlanned,
		Name:        "spese_previste",
		DisplayName: "Spese Previste",
		Description: "Accantonamento per tasse e spese programmate.",
		Instrument:  "XEON ETF / BTP",
		AccountName: "Fineco XEON → Fideuram F24",
		Priority:    3,
	},
	{
		Number:      models.PillarInvestments,
		Name:        "investimenti",
		DisplayName: "Investimenti",
		Description: "Capitale per obiettivi a lungo termine (10+ anni).",
		Instrument:  "ETF azionari",
		AccountName: "Fineco",
		Priority:    4,
	},
}

var seedAccounts = []models.Account{
	{Name: "BBVA", Type: models.AccountChecking, IsActive: true},
	{Name: "Fineco", Type: models.AccountBroker, IsActive: true},
	{Name: "Fideuram", Type: models.AccountTaxOnly, IsActive: true},
}

type seedCategory struct {
	name     string
	typ      models.CategoryType
	icon     string
	color    string
	budget   int64
	keywords []string
	order    int
}

var seedCategories = []seedCategory{
	{"Fatture", models.CategoryIncome, "💼", "#10B981", 3500,
		[]string{"BONIFICO", "FATTURA", "UFFICIO FURORE", "COMPENSO", "ACCREDITO"}, 1},
	{"Altri Ricavi", models.CategoryIncome, "💰", "#34D399", 0,
		[]string{"RIMBORSO", "STORNO", "ACCREDITO"}, 2},

	{"Affitto", models.CategoryFixed, "🏠", "#6366F1", 700,
		[]string{"AFFITTO", "CANONE LOCAZIONE", "PIGIONE"}, 10},
	{"Utenze", models.CategoryFixed, "💡", "#8B5CF6", 150,
		[]string{"ENEL", "ENI", "A2A", "HERA", "SORGENIA", "EDISON", "IREN", "GAS", "LUCE", "ENERGIA"}, 11},
	{"Abbonamenti", models.CategoryFixed, "📱", "#A78BFA", 100,
		[]string{"NETFLIX", "SPOTIFY", "AMAZON PRIME", "DISNEY", "DAZN", "TIM", "VODAFONE", "WIND",
			"ILIAD", "FASTWEB", "PALESTRA", "GYM", "FITNESS"}, 12},
	{"Assicurazioni", models.CategoryFixed, "🛡️", "#C4B5FD", 50,
		[]string{"ASSICURAZIONE", "POLIZZA", "GENERALI", "UNIPOL", "ALLIANZ", "AXA", "ZURICH"}, 13},
	{"Commercialista", models.CategoryFixed, "📊", "#DDD6FE", 100,
		[]string{"COMMERCIALISTA", "CONSULENZA FISCALE", "STUDIO ASSOCIATO"}, 14},

	{"Alimentari", models.CategoryVariable, "🛒", "#F59E0B", 350,
		[]string{"ESSELUNGA", "CARREFOUR", "COOP", "CONAD", "LIDL", "EUROSPIN", "PAM", "PENNY",
			"ALDI", "DESPAR", "TIGROS", "IPERAL", "SIMPLY", "BENNET", "FAMILA", "IPER",
			"SUPERMERCATO", "MARKET", "SPESA"}, 20},
	{"Ristoranti", models.CategoryVariable, "🍕", "#FBBF24", 200,
		[]string{"RISTORANTE", "PIZZERIA", "TRATTORIA", "BAR", "CAFFE", "PASTICCERIA",
			"DELIVEROO", "GLOVO", "JUST EAT", "UBER EATS", "FOODORA", "MCDONALD",
			"BURGER KING", "KFC", "SUBWAY", "SUSHI", "OSTERIA"}, 21},
	{"Trasporti", models.CategoryVariable, "🚗", "#FCD34D", 50,
		[]string{"UBER", "FREE NOW", "BOLT", "TAXI", "TRENITALIA", "ITALO", "ATM", "METRO",
			"BUS", "TRAM", "AUTOSTRADA", "TELEPASS", "ENI STATION", "Q8", "IP",
			"TAMOIL", "ESSO", "SHELL", "TOTAL", "BENZINA", "CARBURANTE"}, 22},
	{"Shopping", models.CategoryVariable, "🛍️", "#FDE68A", 150,
		[]string{"AMAZON", "ZALANDO", "ZARA", "H&M", "UNIQLO", "DECATHLON", "IKEA",
			"MEDIAWORLD", "UNIEURO", "EURONICS", "EXPERT", "APPLE STORE", "FELTRINELLI",
			"MONDADORI", "COIN", "RINASCENTE", "OVS", "PRIMARK"}, 23},
	{"Salute", models.CategoryVariable, "💊", "#EF4444", 50,
		[]string{"FARMACIA", "PARAFARMACIA", "MEDICO", "DOTTORE", "SPECIALISTA",
			"DENTISTA", "OCULISTA", "FISIOTERAPIA", "OSPEDALE", "CLINICA",
			"LABORATORIO", "ANALISI", "VISITA"}, 24},
	{"Svago", models.CategoryVariable, "🎬", "#F87171", 100,
		[]string{"CINEMA", "TEATRO", "MUSEO", "MOSTRA", "CONCERTO", "EVENTO",
			"BIGLIETTO", "TICKET", "STEAM", "PLAYSTATION", "XBOX", "NINTENDO"}, 25},
	{"Viaggi", models.CategoryVariable, "✈️", "#3B82F6", 100,
		[]string{"RYANAIR", "EASYJET", "ALITALIA", "ITA AIRWAYS", "LUFTHANSA",
			"BOOKING", "AIRBNB", "HOTEL", "OSTELLO", "B&B", "EXPEDIA",
			"SKYSCANNER", "TRAINLINE", "FLIXBUS"}, 26},
	{"Altro", models.CategoryVariable, "📦", "#6B7280", 100, nil, 99},
}

// Seed creates the default pillars, accounts, categories and settings for
// year. Existing rows are left untouched, so it is safe to run on every start.
func Seed(ctx context.Context, store Store, year int) (SeedResult, error) {
	var res SeedResult
	log := logger.FromContext(ctx)

	err := store.WithTx(ctx, func(tx Store) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		haveAccount := make(map[string]bool, len(accounts))
		for _, a := range accounts {
			haveAccount[a.Name] = true
		}
		for _, a := range seedAccounts {
			if haveAccount[a.Name] {
				continue
			}
			if err := tx.CreateAccount(ctx, &a); err != nil {
				return err
			}
			res.Accounts++
		}

		for _, p := range seedPillars {
			_, err := tx.GetPillarByNumber(ctx, p.Number)
			if err == nil {
				continue
			}
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			p.CurrentBalance = decimal.Zero
			p.TargetBalance = decimal.Zero
			p.RefreshFunded()
			if err := tx.CreatePillar(ctx, &p); err != nil {
				return err
			}
			res.Pillars++
		}

		liquidity, err := tx.GetPillarByNumber(ctx, models.PillarLiquidity)
		if err != nil {
			return fmt.Errorf("liquidity pillar missing after seed: %w", err)
		}

		categories, err := tx.ListCategories(ctx, CategoryFilter{})
		if err != nil {
			return err
		}
		haveCategory := make(map[string]bool, len(categories))
		for _, c := range categories {
			haveCategory[c.Name] = true
		}
		for _, sc := range seedCategories {
			if haveCategory[sc.name] {
				continue
			}
			c := models.Category{
				Name:          sc.name,
				Type:          sc.typ,
				Icon:          sc.icon,
				Color:         sc.color,
				MonthlyBudget: decimal.NewFromInt(sc.budget),
				Keywords:      models.NormalizeKeywords(sc.keywords),
				DisplayOrder:  sc.order,
				IsActive:      true,
			}
			if sc.typ != models.CategoryIncome {
				id := liquidity.ID
				c.PillarID = &id
			}
			if err := tx.CreateCategory(ctx, &c); err != nil {
				return err
			}
			res.Categories++
		}

		if _, err := tx.GetTaxSettings(ctx, year); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			ts := models.DefaultTaxSettings(year)
			if err := tx.SaveTaxSettings(ctx, &ts); err != nil {
				return err
			}
			res.TaxSettings = true
		}

		if _, err := tx.GetUserSettings(ctx); err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			us := models.DefaultUserSettings()
			if err := tx.SaveUserSettings(ctx, &us); err != nil {
				return err
			}
			res.UserSettings = true
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed failed: %w", err)
	}

	log.Info().
		Int("accounts", res.Accounts).
		Int("pillars", res.Pillars).
		Int("categories", res.Categories).
		Bool("tax_settings", res.TaxSettings).
		Int("year", year).
		Msg("seed complete")
	return res, nil
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType classifies a category as income or a cost kind.
type CategoryType string

const (
	CategoryIncome   CategoryType = "income"
	CategoryFixed    CategoryType = "fixed"
	CategoryVariable CategoryType = "variable"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryIncome, CategoryFixed, CategoryVariable:
		return true
	}
	return false
}

// LineType returns the forecast line kind produced by this category type.
func (t CategoryType) LineType() LineType {
	switch t {
	case CategoryIncome:
		return LineIncome
	case CategoryFixed:
		return LineFixedCost
	default:
		return LineVariableCost
	}
}

// Category groups transactions and carries the keywords used to auto-assign them
type Category struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Type          CategoryType    `json:"type"`
	Icon          string          `json:"icon,omitempty"`
	Color         string          `json:"color,omitempty"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
	Keywords      []string        `json:"keywords"`
	PillarID      *int64          `json:"pillar_id,omitempty"`
	DisplayOrder  int             `json:"display_order"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HasKeyword reports whether kw is already in the keyword set, ignoring case.
func (c Category) HasKeyword(kw string) bool {
	for _, k := range c.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

// NormalizeKeywords uppercases, trims and de-duplicates keywords, keeping order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// CategoryPatch holds the editable category fields; nil means unchanged.
type CategoryPatch struct {
	Name          *string          `json:"name,omitempty"`
	Type          *CategoryType    `json:"type,omitempty"`
	Icon          *string          `json:"icon,omitempty"`
	Color         *string          `json:"color,omitempty"`
	MonthlyBudget *decimal.Decimal `json:"monthly_budget,omitempty"`
	Keywords      []string         `json:"keywords,omitempty"`
	PillarID      *int64           `json:"pillar_id,omitempty"`
	DisplayOrder  *int             `json:"display_order,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

// Apply copies the set fields onto c.
func (patch CategoryPatch) Apply(c *Category) error {
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return Invalidf("unknown category type %q", *patch.Type)
		}
		c.Type = *patch.Type
	}
	if patch.MonthlyBudget != nil {
		if patch.MonthlyBudget.IsNegative() {
			return Invalidf("monthly budget must be >= 0")
		}
		c.MonthlyBudget = patch.MonthlyBudget.Round(2)
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return Invalidf("name is required")
		}
		c.Name = *patch.Name
	}
	if patch.Icon != nil {
		c.Icon = *patch.Icon
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	if patch.Keywords != nil {
		c.Keywords = NormalizeKeywords(patch.Keywords)
	}
	if patch.PillarID != nil {
		id := *patch.PillarID
		c.PillarID = &id
	}
	if patch.DisplayOrder != nil {
		c.DisplayOrder = *patch.DisplayOrder
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	return nil
}

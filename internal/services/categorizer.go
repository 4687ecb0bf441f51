package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ashmitsharp/contaspiccioli-api/internal/database"
	"github.com/ashmitsharp/contaspiccioli-api/internal/logger"
	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
)

// minKeywordLength is the shortest token Learn will turn into a keyword.
const minKeywordLength = 4

// stopWords are never learned as keywords: articles, prepositions and the
// banking terms that appear on every statement row.
var stopWords = map[string]bool{
	"IL": true, "LA": true, "DI": true, "DA": true, "IN": true, "PER": true,
	"CON": true, "SU": true, "TRA": true, "FRA": true,
	"PAGAMENTO": true, "BONIFICO": true, "ADDEBITO": true, "ACCREDITO": true,
	"EUR": true, "SRL": true, "SPA": true,
}

// Categorizer assigns categories to statement descriptions by keyword
// substring matching. Active categories are cached for cacheTTL.
type Categorizer struct {
	store      database.Store
	categories []models.Category
	cacheMutex sync.RWMutex
	cacheTTL   time.Duration
	lastLoaded time.Time
}

// NewCategorizer creates a new categorizer instance
func NewCategorizer(store database.Store) *Categorizer {
	return &Categorizer{
		store:    store,
		cacheTTL: 5 * time.Minute,
	}
}

// LoadCategories refreshes the keyword cache when it has expired.
func (c *Categorizer) LoadCategories(ctx context.Context) error {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if !c.lastLoaded.IsZero() && time.Since(c.lastLoaded) < c.cacheTTL {
		return nil
	}

	cats, err := c.store.ListCategories(ctx, database.CategoryFilter{ActiveOnly: true})
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	c.categories = make([]models.Category, 0, len(cats))
	for _, cat := range cats {
		if len(cat.Keywords) > 0 {
			c.categories = append(c.categories, cat)
		}
	}
	c.lastLoaded = time.Now()
	return nil
}

// Invalidate drops the cache so the next call reloads keywords.
func (c *Categorizer) Invalidate() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.categories = nil
	c.lastLoaded = time.Time{}
}

// Categorize returns the category whose keyword matches description best, or
// nil when nothing matches.
func (c *Categorizer) Categorize(ctx context.Context, description string) (*models.Category, error) {
	if err := c.LoadCategories(ctx); err != nil {
		return nil, err
	}

	c.cacheMutex.RLock()
	cats := c.categories
	c.cacheMutex.RUnlock()

	return matchDescription(description, cats), nil
}

// matchDescription scores every keyword found in the uppercased description
// by its length in characters. categories are scanned in id order and only a strictly
// higher score replaces the best match, so the lowest id wins ties.
func matchDescription(description string, categories []models.Category) *models.Category {
	desc := strings.ToUpper(description)

	var best *models.Category
	bestScore := 0
	for i := range categories {
		cat := &categories[i]
		for _, kw := range cat.Keywords {
			kw = strings.ToUpper(kw)
			if kw == "" || !strings.Contains(desc, kw) {
				continue
			}
			if score := utf8.RuneCountInString(kw); score > bestScore {
				best = cat
				bestScore = score
			}
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	out.Keywords = append([]string(nil), best.Keywords...)
	return &out
}

// keywordCandidate picks the longest alphabetic token of at least
// minKeywordLength characters that is not a stop word. Returns "" when there
// is none.
func keywordCandidate(description string) string {
	best := ""
	for _, tok := range strings.Fields(strings.ToUpper(description)) {
		if len([]rune(tok)) < minKeywordLength || stopWords[tok] || !isAlpha(tok) {
			continue
		}
		if len([]rune(tok)) > len([]rune(best)) {
			best = tok
		}
	}
	return best
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// Learn assigns categoryID to the transaction and adds a keyword taken from
// its original description to the category when one qualifies.
func (c *Categorizer) Learn(ctx context.Context, transactionID, categoryID int64) (*models.Category, error) {
	var (
		out     *models.Category
		learned string
	)
	err := c.store.WithTx(ctx, func(tx database.Store) error {
		txn, err := tx.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		cat, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}

		txn.CategoryID = &cat.ID
		if err := tx.UpdateTransaction(ctx, txn); err != nil {
			return err
		}

		if kw := keywordCandidate(txn.OriginalDescription); kw != "" && !cat.HasKeyword(kw) {
			cat.Keywords = append(cat.Keywords, kw)
			if err := tx.UpdateCategory(ctx, cat); err != nil {
				return err
			}
			learned = kw
		}
		out = cat
		return nil
	})
	if err != nil {
		return nil, err
	}

	if learned != "" {
		c.Invalidate()
		log := logger.FromContext(ctx)
		log.Info().
			Int64("category_id", categoryID).
			Str("keyword", learned).
			Msg("keyword learned")
	}
	return out, nil
}

// Stats reports the size of the keyword cache.
func (c *Categorizer) Stats(ctx context.Context) (map[string]interface{}, error) {
	if err := c.LoadCategories(ctx); err != nil {
		return nil, err
	}

	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	keywords := 0
	for _, cat := range c.categories {
		keywords += len(cat.Keywords)
	}
	return map[string]interface{}{
		"categories_with_keywords": len(c.categories),
		"keywords_count":           keywords,
		"cache_loaded_at":          c.lastLoaded,
	}, nil
}

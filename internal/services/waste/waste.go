// Package waste flags discretionary spending using category and
// description-keyword rules and aggregates the flagged amounts by
// reason.
package waste

import (
	"math"
	"sort"
	"strings"

	"finboard/internal/models"
)

// Config holds the discretionary-spending rules: categories that are
// always flagged, and description keywords matched case-insensitively.
// Keyword order matters: the first match names the reason.
type Config struct {
	Categories []string
	Keywords   []string
}

// DefaultConfig returns the stock rule tables.
func DefaultConfig() Config {
	return Config{
		Categories: []string{
			"Luxury Items", "Jewelry", "Vacation", "Pub",
			"Liquor Store", "Dining Out", "Entertainment",
		},
		Keywords: []string{
			"swiggy", "uber", "zomato", "bar", "delivery", "coffee", "cab",
		},
	}
}

// Classifier applies a rule Config to transaction subsets.
type Classifier struct {
	cfg        Config
	categories map[string]bool
}

// New creates a classifier for the given rules.
func New(cfg Config) *Classifier {
	categories := make(map[string]bool, len(cfg.Categories))
	for _, c := range cfg.Categories {
		categories[c] = true
	}
	return &Classifier{cfg: cfg, categories: categories}
}

// Classify aggregates flagged spending by reason. A transaction is
// flagged when it is positive spending with a non-empty category
// outside the exclusion set, and either the category is listed as
// discretionary or the description contains one of the keywords. The
// reason is the category name for category matches, otherwise
// "Keyword Match: <Keyword>" for the first keyword that matched.
// An empty report is a valid no-discretionary-spending outcome.
func (c *Classifier) Classify(set *models.TransactionSet) models.WasteReport {
	byReason := make(map[string]float64)

	for _, t := range set.Transactions {
		if t.Amount <= 0 || t.Category == "" || models.ExcludedCategories[t.Category] {
			continue
		}

		if c.categories[t.Category] {
			byReason[t.Category] += t.Amount
			continue
		}
		if keyword, ok := c.matchKeyword(t.Description); ok {
			byReason["Keyword Match: "+capitalize(keyword)] += t.Amount
		}
	}

	if len(byReason) == 0 {
		return models.WasteReport{}
	}

	var total float64
	for _, amount := range byReason {
		total += amount
	}

	report := models.WasteReport{Total: total}
	for reason, amount := range byReason {
		report.Entries = append(report.Entries, models.WasteEntry{
			Reason:  reason,
			Amount:  amount,
			Percent: math.Round(amount/total*1000) / 10,
		})
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		if report.Entries[i].Amount != report.Entries[j].Amount {
			return report.Entries[i].Amount > report.Entries[j].Amount
		}
		return report.Entries[i].Reason < report.Entries[j].Reason
	})
	return report
}

// matchKeyword returns the first configured keyword contained in the
// description, case-insensitively.
func (c *Classifier) matchKeyword(description string) (string, bool) {
	desc := strings.ToLower(description)
	for _, keyword := range c.cfg.Keywords {
		if strings.Contains(desc, strings.ToLower(keyword)) {
			return keyword, true
		}
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// RecordSummary is a compact overview of a set of exported invoices.
type RecordSummary struct {
	Count       int              `json:"count"`
	Total       decimal.Decimal  `json:"total"`
	Outstanding decimal.Decimal  `json:"outstanding"`
	ByCategory  []CategoryAmount `json:"byCategory"`
}

// Summarize aggregates records by category in first-seen order. Records
// that are not yet paid count towards Outstanding.
func Summarize(records []Record) RecordSummary {
	s := RecordSummary{Total: decimal.Zero, Outstanding: decimal.Zero}
	idx := map[Category]int{}
	for _, r := range records {
		s.Count++
		s.Total = s.Total.Add(r.Amount)
		if r.Status != StatusPaid {
			s.Outstanding = s.Outstanding.Add(r.Amount)
		}
		i, ok := idx[r.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[r.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Category: r.Category, Amount: decimal.Zero})
		}
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(r.Amount)
	}
	return s
}

package vault

import (
	"slices"
	"sort"
)

// Derivation functions computing aggregates and filtered views from a
// materialized receipt slice. All of them are pure: no I/O, inputs are
// never mutated.

// TotalSpending sums the amounts of all receipts
func TotalSpending(receipts []Receipt) float64 {
	var total float64
	for _, receipt := range receipts {
		total += receipt.Amount
	}
	return total
}

// SpendingByCategory sums receipt amounts per tag. A receipt contributes
// its full amount to every tag it carries, so bucket totals can exceed
// TotalSpending when receipts hold multiple tags; category views are
// independent lenses, not a partition.
func SpendingByCategory(receipts []Receipt) map[string]float64 {
	spending := make(map[string]float64)
	for _, receipt := range receipts {
		for _, tag := range receipt.Tags {
			spending[tag] += receipt.Amount
		}
	}
	return spending
}

// RecentReceipts returns up to limit receipts sorted newest first by
// date. The sort operates on a copy; malformed dates sort as oldest.
func RecentReceipts(receipts []Receipt, limit int) []Receipt {
	sorted := make([]Receipt, len(receipts))
	copy(sorted, receipts)

	sort.SliceStable(sorted, func(i, j int) bool {
		ti, iok := parseDate(sorted[i].Date)
		tj, jok := parseDate(sorted[j].Date)
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})

	if limit < 0 {
		limit = 0
	}
	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}

// MonthlySpending sums the amounts of receipts dated within the given
// year and zero-based month
func MonthlySpending(receipts []Receipt, year, monthIndex int) float64 {
	return TotalSpending(FilterByMonth(receipts, year, monthIndex))
}

// FilterByTag returns receipts whose tags contain the given name,
// input order preserved
func FilterByTag(receipts []Receipt, tag string) []Receipt {
	filtered := make([]Receipt, 0)
	for _, receipt := range receipts {
		if slices.Contains(receipt.Tags, tag) {
			filtered = append(filtered, receipt)
		}
	}
	return filtered
}

// FilterByMonth returns receipts whose date falls in the given year and
// zero-based month. Receipts with malformed dates match no filter.
func FilterByMonth(receipts []Receipt, year, monthIndex int) []Receipt {
	filtered := make([]Receipt, 0)
	for _, receipt := range receipts {
		t, ok := parseDate(receipt.Date)
		if !ok {
			continue
		}
		if t.Year() == year && int(t.Month())-1 == monthIndex {
			filtered = append(filtered, receipt)
		}
	}
	return filtered
}

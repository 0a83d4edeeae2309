// Package analytics derives trend statistics and chart-ready series from
// processed item price histories.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saifeemustafaq/receiptscanner/internal/items"
	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

// trendDeadband is the percent-change magnitude below which a price
// series counts as stable.
var trendDeadband = decimal.NewFromInt(5)

// Trend classifies the price movement between the oldest and newest
// retained observation.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Statistics summarizes a (possibly store-filtered) price history.
type Statistics struct {
	CheapestStore      string          `json:"cheapestStore"`
	CheapestPrice      decimal.Decimal `json:"cheapestPrice"`
	CheapestDate       time.Time       `json:"cheapestDate"`
	MostExpensiveStore string          `json:"mostExpensiveStore"`
	MostExpensivePrice decimal.Decimal `json:"mostExpensivePrice"`
	MostExpensiveDate  time.Time       `json:"mostExpensiveDate"`
	AveragePrice       decimal.Decimal `json:"averagePrice"`
	TotalPurchases     int             `json:"totalPurchases"`
	PriceChange        decimal.Decimal `json:"priceChange"` // percent, oldest to newest
	Trend              Trend           `json:"trend"`
}

// ChartPoint is one calendar date on a price chart with the per-store
// prices observed on that date. Stores without an observation on a date
// are simply absent; the charting layer renders gaps, not interpolations.
type ChartPoint struct {
	Date   string                     `json:"date"` // YYYY-MM-DD
	Prices map[string]decimal.Decimal `json:"prices"`
}

// filterByStores keeps the entries whose store is in the allow-list. An
// empty list means no filtering.
func filterByStores(history []items.PriceEntry, stores []string) []items.PriceEntry {
	if len(stores) == 0 {
		return history
	}
	allowed := make(map[string]bool, len(stores))
	for _, s := range stores {
		allowed[s] = true
	}
	filtered := make([]items.PriceEntry, 0, len(history))
	for _, entry := range history {
		if allowed[entry.Store] {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// CalculateStatistics computes summary statistics over an item's filtered
// price history. A nil item or a store filter matching nothing yields nil,
// the defined "no data" result. The average is unweighted: stores with
// more recorded price points pull the mean toward themselves.
func CalculateStatistics(item *items.ProcessedItem, stores []string) *Statistics {
	if item == nil {
		return nil
	}
	history := filterByStores(item.PriceHistory, stores)
	if len(history) == 0 {
		return nil
	}

	// History is newest-first; ties resolve to the first entry scanned.
	cheapest, mostExpensive := history[0], history[0]
	sum := decimal.Zero
	for _, entry := range history {
		if entry.Price.LessThan(cheapest.Price) {
			cheapest = entry
		}
		if entry.Price.GreaterThan(mostExpensive.Price) {
			mostExpensive = entry
		}
		sum = sum.Add(entry.Price)
	}

	oldest := history[len(history)-1]
	newest := history[0]

	change := decimal.Zero
	if !oldest.Price.IsZero() {
		change = newest.Price.Sub(oldest.Price).Div(oldest.Price).Mul(decimal.NewFromInt(100))
	}

	trend := TrendStable
	if change.Abs().GreaterThan(trendDeadband) {
		if change.IsPositive() {
			trend = TrendUp
		} else {
			trend = TrendDown
		}
	}

	return &Statistics{
		CheapestStore:      cheapest.Store,
		CheapestPrice:      cheapest.Price,
		CheapestDate:       cheapest.Date,
		MostExpensiveStore: mostExpensive.Store,
		MostExpensivePrice: mostExpensive.Price,
		MostExpensiveDate:  mostExpensive.Date,
		AveragePrice:       sum.Div(decimal.NewFromInt(int64(len(history)))),
		TotalPurchases:     len(history),
		PriceChange:        change,
		Trend:              trend,
	}
}

// PrepareChartData groups an item's filtered history by calendar date,
// one sparse series per store. Multiple observations from the same store
// on the same date collapse to their arithmetic mean. Points come back
// sorted ascending by date.
func PrepareChartData(item *items.ProcessedItem, stores []string) []ChartPoint {
	if item == nil {
		return nil
	}
	history := filterByStores(item.PriceHistory, stores)

	type accum struct {
		sum   decimal.Decimal
		count int64
	}
	byDate := make(map[string]map[string]*accum)

	for _, entry := range history {
		date := entry.Date.Format(time.DateOnly)
		byStore, ok := byDate[date]
		if !ok {
			byStore = make(map[string]*accum)
			byDate[date] = byStore
		}
		a, ok := byStore[entry.Store]
		if !ok {
			a = &accum{sum: decimal.Zero}
			byStore[entry.Store] = a
		}
		a.sum = a.sum.Add(entry.Price)
		a.count++
	}

	points := make([]ChartPoint, 0, len(byDate))
	for date, byStore := range byDate {
		prices := make(map[string]decimal.Decimal, len(byStore))
		for store, a := range byStore {
			prices[store] = a.sum.Div(decimal.NewFromInt(a.count))
		}
		points = append(points, ChartPoint{Date: date, Prices: prices})
	}

	// ISO dates sort lexicographically in chronological order.
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// ItemNames returns the display names of all processed items, sorted
// case-insensitively.
func ItemNames(receipts []*receipt.Receipt) []string {
	processed := items.ProcessReceipts(receipts)
	names := make([]string, 0, len(processed))
	for _, item := range processed {
		names = append(names, item.Name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// UniqueStores returns the deduplicated, lexicographically sorted set of
// selected store names across all receipts.
func UniqueStores(receipts []*receipt.Receipt) []string {
	seen := make(map[string]bool)
	stores := make([]string, 0)
	for _, r := range receipts {
		if !seen[r.StoreNameSelected] {
			seen[r.StoreNameSelected] = true
			stores = append(stores, r.StoreNameSelected)
		}
	}
	sort.Strings(stores)
	return stores
}

// chartPalette cycles for stores without a fixed brand color.
var chartPalette = []string{
	"#D4AF37", // golden
	"#2E7D32", // green
	"#1976D2", // blue
	"#D32F2F", // red
	"#7B1FA2", // purple
	"#F57C00", // orange
	"#0097A7", // cyan
	"#C2185B", // pink
}

// brandColors maps known retail chains to their brand color.
var brandColors = map[string]string{
	"walmart":     "#0071CE",
	"target":      "#CC0000",
	"costco":      "#0066B2",
	"whole foods": "#00A652",
	"kroger":      "#E32D1C",
}

// StoreColor returns a deterministic chart color for a store: known
// chains get their brand color, everything else cycles through the
// palette keyed by first-seen index.
func StoreColor(store string, index int) string {
	lower := strings.ToLower(store)
	for brand, color := range brandColors {
		if strings.Contains(lower, brand) {
			return color
		}
	}
	if index < 0 {
		index = -index
	}
	return chartPalette[index%len(chartPalette)]
}

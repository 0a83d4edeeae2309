// Package items merges line-item observations across receipts into one
// canonical price timeline per item.
package items

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

// priceTolerance is the cent-level threshold under which two prices from
// the same store count as the same price.
var priceTolerance = decimal.New(1, -2) // 0.01

// PriceEntry is one derived price observation: the per-unit price of an
// item on one receipt. Entries are recomputed from receipts on every query
// and never persisted.
type PriceEntry struct {
	Store     string          `json:"store"`
	Price     decimal.Decimal `json:"price"`
	Unit      *string         `json:"unit"`
	Date      time.Time       `json:"date"`
	ReceiptID string          `json:"receiptId"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProcessedItem is the aggregate view of one canonical item across all
// receipts. PriceHistory is newest-first after variation filtering.
type ProcessedItem struct {
	Name           string          `json:"name"`
	NormalizedName string          `json:"normalizedName"`
	LatestPrice    decimal.Decimal `json:"latestPrice"`
	LatestStore    string          `json:"latestStore"`
	LatestDate     time.Time       `json:"latestDate"`
	LatestUnit     *string         `json:"latestUnit"`
	PriceHistory   []PriceEntry    `json:"priceHistory"`
}

// Normalize returns the canonical identity of an item name. Two line items
// are the same item iff their normalized names are equal; there is no
// fuzzy matching.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// newEntry derives a price observation from one line item on one receipt.
// The price is per unit (TotalPrice / Quantity, quantity defaulting to 1)
// so that different package sizes stay comparable. The store is the
// user-selected store name and the date is the billing date.
func newEntry(r *receipt.Receipt, item receipt.LineItem) PriceEntry {
	qty := decimal.NewFromInt(1)
	if item.Quantity > 0 {
		qty = decimal.NewFromFloat(item.Quantity)
	}
	return PriceEntry{
		Store:     r.StoreNameSelected,
		Price:     item.TotalPrice.Div(qty),
		Unit:      item.Unit,
		Date:      r.BillingDate,
		ReceiptID: r.ID,
		Timestamp: r.CreatedAt,
	}
}

// ProcessReceipts builds the full set of processed items from a snapshot
// of receipts. Observations are grouped by canonical name, ordered by
// receipt save time, run through the variation filter, and returned
// sorted ascending by normalized name with newest-first histories.
func ProcessReceipts(receipts []*receipt.Receipt) []ProcessedItem {
	buckets := make(map[string][]PriceEntry)
	displayNames := make(map[string]string)

	for _, r := range receipts {
		for _, item := range r.Items {
			key := Normalize(item.Name)
			if _, ok := displayNames[key]; !ok {
				displayNames[key] = item.Name
			}
			buckets[key] = append(buckets[key], newEntry(r, item))
		}
	}

	processed := make([]ProcessedItem, 0, len(buckets))
	for key, entries := range buckets {
		// Save order establishes a deterministic processing order even
		// when two receipts share a billing date.
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})

		history := filterVariations(entries)
		if len(history) == 0 {
			continue
		}

		latest := history[len(history)-1]
		reverse(history)

		processed = append(processed, ProcessedItem{
			Name:           displayNames[key],
			NormalizedName: key,
			LatestPrice:    latest.Price,
			LatestStore:    latest.Store,
			LatestDate:     latest.Date,
			LatestUnit:     latest.Unit,
			PriceHistory:   history,
		})
	}

	sort.Slice(processed, func(i, j int) bool {
		return processed[i].NormalizedName < processed[j].NormalizedName
	})
	return processed
}

// filterVariations collapses redundant observations into meaningful
// history. Input must be sorted ascending by timestamp; output stays
// ascending. Rules:
//   - the first observation is always kept
//   - the first observation from a store is always kept, even at an
//     unchanged price (a store change is a reportable event)
//   - a later observation from the same store is kept only when its price
//     moved more than priceTolerance from the last kept one
func filterVariations(entries []PriceEntry) []PriceEntry {
	if len(entries) == 0 {
		return nil
	}

	kept := make([]PriceEntry, 0, len(entries))
	lastByStore := make(map[string]PriceEntry)

	for _, entry := range entries {
		prior, seen := lastByStore[entry.Store]

		switch {
		case len(kept) == 0:
			// first observation overall
		case !seen:
			// first observation for this store
		case entry.Price.Sub(prior.Price).Abs().GreaterThan(priceTolerance):
			// real price change at this store
		default:
			continue
		}

		kept = append(kept, entry)
		lastByStore[entry.Store] = entry
	}
	return kept
}

func reverse(entries []PriceEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// GetItemByName returns the processed item whose canonical name matches
// the given name, or nil when no such item exists.
func GetItemByName(receipts []*receipt.Receipt, name string) *ProcessedItem {
	target := Normalize(name)
	for _, item := range ProcessReceipts(receipts) {
		if item.NormalizedName == target {
			return &item
		}
	}
	return nil
}

// SearchItems returns items whose normalized name contains the search
// term. An empty term returns all items.
func SearchItems(receipts []*receipt.Receipt, term string) []ProcessedItem {
	all := ProcessReceipts(receipts)
	needle := Normalize(term)
	if needle == "" {
		return all
	}

	matches := make([]ProcessedItem, 0, len(all))
	for _, item := range all {
		if strings.Contains(item.NormalizedName, needle) {
			matches = append(matches, item)
		}
	}
	return matches
}

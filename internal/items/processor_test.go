package items_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifeemustafaq/receiptscanner/internal/items"
	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

var seq int

// rcpt builds a receipt whose save order follows construction order, so
// tests control the processing order explicitly.
func rcpt(store string, billingDate time.Time, lineItems ...receipt.LineItem) *receipt.Receipt {
	seq++
	return &receipt.Receipt{
		ID:                fmt.Sprintf("r%d", seq),
		StoreNameSelected: store,
		BillingDate:       billingDate,
		Items:             lineItems,
		CreatedAt:         time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute),
	}
}

func line(name string, quantity float64, totalPrice string) receipt.LineItem {
	return receipt.LineItem{
		Name:       name,
		Quantity:   quantity,
		TotalPrice: decimal.RequireFromString(totalPrice),
	}
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Milk", "milk"},
		{"  MILK  ", "milk"},
		{"Organic Milk 2%", "organic milk 2%"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, items.Normalize(tt.in))
	}
}

func TestProcessReceipts_PerUnitPrice(t *testing.T) {
	// GIVEN: 3 apples for $6.00
	// THEN: the recorded price is $2.00 per apple

	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Apples", 3, "6.00")),
	})

	require.Len(t, processed, 1)
	assert.True(t, processed[0].LatestPrice.Equal(decimal.RequireFromString("2")),
		"got %s", processed[0].LatestPrice)
}

func TestProcessReceipts_ZeroQuantityDefaultsToOne(t *testing.T) {
	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Gum", 0, "1.50")),
	})

	require.Len(t, processed, 1)
	assert.True(t, processed[0].LatestPrice.Equal(decimal.RequireFromString("1.50")))
}

func TestProcessReceipts_SingleObservation(t *testing.T) {
	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Target", day(5), line("Eggs", 1, "4.99")),
	})

	require.Len(t, processed, 1)
	item := processed[0]
	assert.Equal(t, "Eggs", item.Name)
	assert.Equal(t, "eggs", item.NormalizedName)
	assert.Equal(t, "Target", item.LatestStore)
	assert.Equal(t, day(5), item.LatestDate)
	require.Len(t, item.PriceHistory, 1)
}

func TestProcessReceipts_CaseInsensitiveGrouping(t *testing.T) {
	// "Milk", "MILK" and " milk " are one item; the display name is the
	// casing of the first observation.

	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00")),
		rcpt("Target", day(2), line("MILK", 1, "3.50")),
		rcpt("Costco", day(3), line(" milk ", 1, "2.80")),
	})

	require.Len(t, processed, 1)
	assert.Equal(t, "Milk", processed[0].Name)
	assert.Len(t, processed[0].PriceHistory, 3)
}

func TestProcessReceipts_ConstantPriceSameStoreCollapses(t *testing.T) {
	// Same store, same price three times: only the first survives.

	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Bread", 1, "2.50")),
		rcpt("Walmart", day(8), line("Bread", 1, "2.50")),
		rcpt("Walmart", day(15), line("Bread", 1, "2.50")),
	})

	require.Len(t, processed, 1)
	assert.Len(t, processed[0].PriceHistory, 1)
	assert.Equal(t, day(1), processed[0].PriceHistory[0].Date)
}

func TestProcessReceipts_FirstObservationPerStoreKept(t *testing.T) {
	// Same price at two different stores: both kept, a store change is a
	// reportable event.

	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00")),
		rcpt("Walmart", day(8), line("Milk", 1, "3.00")),
		rcpt("Target", day(15), line("Milk", 1, "3.00")),
	})

	require.Len(t, processed, 1)
	history := processed[0].PriceHistory
	require.Len(t, history, 2)
	// Newest first.
	assert.Equal(t, "Target", history[0].Store)
	assert.Equal(t, "Walmart", history[1].Store)
}

func TestProcessReceipts_CentMoveIsNotAChange(t *testing.T) {
	// A move of exactly one cent at the same store stays within tolerance.

	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00")),
		rcpt("Walmart", day(8), line("Milk", 1, "3.01")),
		rcpt("Walmart", day(15), line("Milk", 1, "3.02")),
	})

	require.Len(t, processed, 1)
	history := processed[0].PriceHistory
	require.Len(t, history, 2, "3.02 is more than a cent away from the kept 3.00")
	assert.True(t, history[0].Price.Equal(decimal.RequireFromString("3.02")))
	assert.True(t, history[1].Price.Equal(decimal.RequireFromString("3.00")))
}

func TestProcessReceipts_PriceChangeSameStoreKept(t *testing.T) {
	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00")),
		rcpt("Walmart", day(8), line("Milk", 1, "3.50")),
	})

	require.Len(t, processed, 1)
	require.Len(t, processed[0].PriceHistory, 2)
	assert.True(t, processed[0].LatestPrice.Equal(decimal.RequireFromString("3.50")))
}

func TestProcessReceipts_InterleavedStores(t *testing.T) {
	// Walmart 3.00, Target 3.20, Walmart 3.00 again: the third entry is
	// compared against the last kept Walmart entry, not against Target, so
	// it collapses.

	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00")),
		rcpt("Target", day(2), line("Milk", 1, "3.20")),
		rcpt("Walmart", day(3), line("Milk", 1, "3.00")),
	})

	require.Len(t, processed, 1)
	assert.Len(t, processed[0].PriceHistory, 2)
}

func TestProcessReceipts_SortedByName(t *testing.T) {
	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1),
			line("Zucchini", 1, "1.00"),
			line("Apples", 1, "2.00"),
			line("Milk", 1, "3.00"),
		),
	})

	require.Len(t, processed, 3)
	assert.Equal(t, "apples", processed[0].NormalizedName)
	assert.Equal(t, "milk", processed[1].NormalizedName)
	assert.Equal(t, "zucchini", processed[2].NormalizedName)
}

func TestProcessReceipts_HistoryNewestFirst(t *testing.T) {
	processed := items.ProcessReceipts([]*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00")),
		rcpt("Walmart", day(8), line("Milk", 1, "3.50")),
		rcpt("Walmart", day(15), line("Milk", 1, "4.00")),
	})

	require.Len(t, processed, 1)
	history := processed[0].PriceHistory
	require.Len(t, history, 3)
	assert.Equal(t, day(15), history[0].Date)
	assert.Equal(t, day(8), history[1].Date)
	assert.Equal(t, day(1), history[2].Date)
}

func TestProcessReceipts_Empty(t *testing.T) {
	assert.Empty(t, items.ProcessReceipts(nil))
	assert.Empty(t, items.ProcessReceipts([]*receipt.Receipt{}))
}

func TestGetItemByName(t *testing.T) {
	receipts := []*receipt.Receipt{
		rcpt("Walmart", day(1), line("Milk", 1, "3.00"), line("Eggs", 1, "4.99")),
	}

	item := items.GetItemByName(receipts, "  MILK ")
	require.NotNil(t, item)
	assert.Equal(t, "Milk", item.Name)

	assert.Nil(t, items.GetItemByName(receipts, "butter"))
}

func TestSearchItems(t *testing.T) {
	receipts := []*receipt.Receipt{
		rcpt("Walmart", day(1),
			line("Whole Milk", 1, "3.00"),
			line("Oat Milk", 1, "4.50"),
			line("Eggs", 1, "4.99"),
		),
	}

	matches := items.SearchItems(receipts, "milk")
	require.Len(t, matches, 2)
	assert.Equal(t, "oat milk", matches[0].NormalizedName)
	assert.Equal(t, "whole milk", matches[1].NormalizedName)

	assert.Len(t, items.SearchItems(receipts, ""), 3)
	assert.Empty(t, items.SearchItems(receipts, "cheese"))
}

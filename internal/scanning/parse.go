package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// rawReceipt mirrors the JSON the models are prompted to return. Numeric
// fields use NullDecimal because the prompt tells the model to emit null
// for anything it cannot read.
type rawReceipt struct {
	StoreNameScanned string              `json:"storeNameScanned"`
	ReceiptDate      string              `json:"receiptDate"`
	Items            []rawItem           `json:"items"`
	Total            decimal.NullDecimal `json:"total"`
}

type rawItem struct {
	Name       string              `json:"name"`
	Quantity   *float64            `json:"quantity"`
	UnitPrice  decimal.NullDecimal `json:"unitPrice"`
	TotalPrice decimal.NullDecimal `json:"totalPrice"`
	Unit       *string             `json:"unit"`
}

// parseReceiptJSON parses the JSON response from an LLM provider,
// tolerating markdown fences, surrounding prose, and null fields.
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var raw rawReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data := &ReceiptData{
		StoreNameScanned: strings.TrimSpace(raw.StoreNameScanned),
		ReceiptDate:      normalizeDate(raw.ReceiptDate),
	}
	if raw.Total.Valid {
		data.Total = raw.Total.Decimal
	}

	for _, item := range raw.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		extracted := ExtractedItem{
			Name:     name,
			Quantity: 1,
			Unit:     item.Unit,
		}
		if item.Quantity != nil && *item.Quantity > 0 {
			extracted.Quantity = *item.Quantity
		}
		if item.TotalPrice.Valid {
			extracted.TotalPrice = item.TotalPrice.Decimal
		}
		if item.UnitPrice.Valid {
			p := item.UnitPrice.Decimal
			extracted.UnitPrice = &p
		}
		if extracted.Unit != nil && strings.TrimSpace(*extracted.Unit) == "" {
			extracted.Unit = nil
		}
		data.Items = append(data.Items, extracted)
	}

	return data, nil
}

// normalizeDate coerces the model's date output into YYYY-MM-DD, falling
// back to today when it cannot be parsed.
func normalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Now().Format(time.DateOnly)
	}

	formats := []string{
		time.DateOnly,
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, date); err == nil {
			return d.Format(time.DateOnly)
		}
	}
	return time.Now().Format(time.DateOnly)
}

package scanning

import "github.com/shopspring/decimal"

// ExtractedItem is one line item read off a receipt image. Nullable
// fields stay nil when the model could not read them.
type ExtractedItem struct {
	Name       string           `json:"name"`
	Quantity   float64          `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal  `json:"totalPrice"`
	Unit       *string          `json:"unit"`
}

// ReceiptData contains the information extracted from a receipt image.
type ReceiptData struct {
	StoreNameScanned string          `json:"storeNameScanned"`
	ReceiptDate      string          `json:"receiptDate"` // YYYY-MM-DD
	Items            []ExtractedItem `json:"items"`
	Total            decimal.Decimal `json:"total"`
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts its contents
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

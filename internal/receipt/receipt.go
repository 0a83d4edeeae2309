package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a single purchased item as extracted (and possibly edited)
// from a receipt. UnitPrice and Unit are nullable because extraction often
// cannot read them. TotalPrice should equal Quantity times UnitPrice, but
// extraction and manual edits can violate that, so downstream consumers
// derive per-unit prices from TotalPrice and Quantity only.
type LineItem struct {
	Name       string           `json:"name"`
	Quantity   float64          `json:"quantity"`
	UnitPrice  *decimal.Decimal `json:"unitPrice,omitempty"`
	TotalPrice decimal.Decimal  `json:"totalPrice"`
	Unit       *string          `json:"unit,omitempty"`
}

// Receipt is one recorded purchase event. BillingDate is the date printed
// on the receipt; UploadDate is when the user scanned it. CreatedAt is the
// save timestamp and doubles as the processing-order key when building
// price history.
type Receipt struct {
	ID                string          `json:"id"`
	StoreNameScanned  string          `json:"storeNameScanned"`
	StoreNameSelected string          `json:"storeNameSelected"`
	BillingDate       time.Time       `json:"billingDate"`
	UploadDate        time.Time       `json:"uploadDate"`
	Total             decimal.Decimal `json:"total"`
	Items             []LineItem      `json:"items"`
	Filename          string          `json:"filename,omitempty"`
	ContentType       string          `json:"contentType,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

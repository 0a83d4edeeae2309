package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

// validateReceipt checks the required fields of a receipt being saved.
func validateReceipt(r *receipt.Receipt) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.StoreNameSelected, validation.Required),
		validation.Field(&r.Items, validation.Required),
	)
}

// UpdateReceiptRequest is the request body for updating a receipt. Nil
// fields are left unchanged.
type UpdateReceiptRequest struct {
	StoreNameSelected *string            `json:"storeNameSelected"`
	BillingDate       *string            `json:"billingDate"` // YYYY-MM-DD
	Items             []receipt.LineItem `json:"items"`
}

// Validate validates the update request.
func (r UpdateReceiptRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BillingDate, validation.Date(time.DateOnly)),
	)
}

// RenameItemRequest is the request body for renaming an item across all
// receipts.
type RenameItemRequest struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// Validate validates the rename request.
func (r RenameItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldName, validation.Required),
		validation.Field(&r.NewName, validation.Required),
	)
}

// NameRequest is the request body for reference-list additions.
type NameRequest struct {
	Name string `json:"name"`
}

// Validate validates the name request.
func (r NameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// StoreInfo pairs a store with its deterministic chart color.
type StoreInfo struct {
	Store string `json:"store"`
	Color string `json:"color"`
}

// RenameItemResponse reports how many receipts a rename touched.
type RenameItemResponse struct {
	UpdatedReceipts int `json:"updatedReceipts"`
}

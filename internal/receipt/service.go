package receipt

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/saifeemustafaq/receiptscanner/internal/scanning"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	// Keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate phone-generated long filenames
	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ScanReceipt stores the uploaded image and runs extraction, returning a
// draft receipt for the user to review. The draft is NOT persisted; the
// caller saves it via CreateReceipt once the user confirms the extracted
// items and store.
func (s *Service) ScanReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	extracted, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since scanning failed
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	billingDate, err := time.Parse(time.DateOnly, extracted.ReceiptDate)
	if err != nil {
		billingDate = now
	}

	items := make([]LineItem, 0, len(extracted.Items))
	for _, item := range extracted.Items {
		items = append(items, LineItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			Unit:       item.Unit,
		})
	}

	return &Receipt{
		ID:               id,
		StoreNameScanned: extracted.StoreNameScanned,
		// Pre-select the scanned name; the user can pick another store
		// before saving
		StoreNameSelected: extracted.StoreNameScanned,
		BillingDate:       billingDate,
		UploadDate:        now,
		Total:             extracted.Total,
		Items:             items,
		Filename:          savedPath,
		ContentType:       contentType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CreateReceipt persists a reviewed receipt
func (s *Service) CreateReceipt(receipt *Receipt) error {
	now := s.timeSource.Now()
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}
	if receipt.UploadDate.IsZero() {
		receipt.UploadDate = receipt.CreatedAt
	}
	receipt.UpdatedAt = now

	if err := s.db.SaveReceipt(receipt); err != nil {
		return fmt.Errorf("saving receipt: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// ReceiptUpdate carries the mutable fields of a receipt. Nil fields are
// left unchanged.
type ReceiptUpdate struct {
	StoreNameSelected *string
	BillingDate       *time.Time
	Items             []LineItem
}

// UpdateReceipt applies an update to a stored receipt
func (s *Service) UpdateReceipt(id string, update ReceiptUpdate) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt for update: %w", err)
	}

	if update.StoreNameSelected != nil {
		receipt.StoreNameSelected = *update.StoreNameSelected
	}
	if update.BillingDate != nil {
		receipt.BillingDate = *update.BillingDate
	}
	if update.Items != nil {
		receipt.Items = update.Items
	}
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving updated receipt: %w", err)
	}
	return receipt, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.Filename != "" {
		if err := s.storage.Delete(receipt.Filename); err != nil {
			// Log but continue with database deletion
			slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the image data for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// RenameItem rewrites every line item whose name matches oldName
// (case-insensitively, trimmed) to newName across all receipts, and
// returns how many receipts were updated. Items are identified purely by
// name, so renaming onto an existing item merges their histories.
func (s *Service) RenameItem(oldName, newName string) (int, error) {
	target := strings.ToLower(strings.TrimSpace(oldName))
	newName = strings.TrimSpace(newName)
	if target == "" || newName == "" {
		return 0, fmt.Errorf("item names must not be empty")
	}

	receipts, err := s.db.ListReceipts()
	if err != nil {
		return 0, fmt.Errorf("listing receipts for rename: %w", err)
	}

	now := s.timeSource.Now()
	updated := 0
	for _, receipt := range receipts {
		changed := false
		for i, item := range receipt.Items {
			if strings.ToLower(strings.TrimSpace(item.Name)) == target {
				receipt.Items[i].Name = newName
				changed = true
			}
		}
		if !changed {
			continue
		}
		receipt.UpdatedAt = now
		if err := s.db.SaveReceipt(receipt); err != nil {
			return updated, fmt.Errorf("saving renamed receipt %s: %w", receipt.ID, err)
		}
		updated++
	}

	slog.Info("Renamed item", "old", oldName, "new", newName, "receipts", updated)
	return updated, nil
}

// Export formats.
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
)

// ExportReceipts dumps all receipts in the given format and returns the
// data along with its content type.
func (s *Service) ExportReceipts(format string) ([]byte, string, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, "", fmt.Errorf("listing receipts for export: %w", err)
	}

	switch format {
	case ExportJSON, "":
		data, err := json.MarshalIndent(receipts, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshaling receipts: %w", err)
		}
		return data, "application/json", nil

	case ExportCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		records := [][]string{{"ID", "Store", "Billing Date", "Upload Date", "Total", "Items Count"}}
		for _, r := range receipts {
			records = append(records, []string{
				r.ID,
				r.StoreNameSelected,
				r.BillingDate.Format(time.DateOnly),
				r.UploadDate.Format(time.DateOnly),
				r.Total.String(),
				strconv.Itoa(len(r.Items)),
			})
		}
		if err := w.WriteAll(records); err != nil {
			return nil, "", fmt.Errorf("writing csv: %w", err)
		}
		return buf.Bytes(), "text/csv", nil

	default:
		return nil, "", fmt.Errorf("unknown export format %q", format)
	}
}

// ListStores returns the store reference list
func (s *Service) ListStores() ([]string, error) {
	return s.db.ListStores()
}

// AddStore adds a store to the reference list, rejecting case-insensitive
// duplicates
func (s *Service) AddStore(name string) error {
	return s.addReference(name, s.db.ListStores, s.db.SaveStores)
}

// RemoveStore removes a store from the reference list, matching
// case-insensitively
func (s *Service) RemoveStore(name string) error {
	return s.removeReference(name, s.db.ListStores, s.db.SaveStores)
}

// ListUnits returns the unit reference list
func (s *Service) ListUnits() ([]string, error) {
	return s.db.ListUnits()
}

// AddUnit adds a unit to the reference list, rejecting case-insensitive
// duplicates
func (s *Service) AddUnit(name string) error {
	return s.addReference(name, s.db.ListUnits, s.db.SaveUnits)
}

// RemoveUnit removes a unit from the reference list, matching
// case-insensitively
func (s *Service) RemoveUnit(name string) error {
	return s.removeReference(name, s.db.ListUnits, s.db.SaveUnits)
}

func (s *Service) addReference(name string, list func() ([]string, error), save func([]string) error) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name must not be empty")
	}

	values, err := list()
	if err != nil {
		return err
	}

	lower := strings.ToLower(trimmed)
	for _, v := range values {
		if strings.ToLower(v) == lower {
			return fmt.Errorf("%s: %w", trimmed, ErrAlreadyExists)
		}
	}

	values = append(values, trimmed)
	sort.Strings(values)
	return save(values)
}

func (s *Service) removeReference(name string, list func() ([]string, error), save func([]string) error) error {
	values, err := list()
	if err != nil {
		return err
	}

	lower := strings.ToLower(strings.TrimSpace(name))
	filtered := values[:0]
	for _, v := range values {
		if strings.ToLower(v) != lower {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == len(values) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return save(filtered)
}

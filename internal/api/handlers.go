package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saifeemustafaq/receiptscanner/internal/analytics"
	"github.com/saifeemustafaq/receiptscanner/internal/items"
	"github.com/saifeemustafaq/receiptscanner/internal/receipt"
)

// maxUploadSize bounds receipt uploads; high-resolution phone photos can
// be large.
const maxUploadSize = int64(50 << 20) // 50MB

// pathParam returns a URL-decoded route parameter.
func pathParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}

// storeFilter parses the ?stores=a,b,c query parameter.
func storeFilter(r *http.Request) []string {
	raw := r.URL.Query().Get("stores")
	if raw == "" {
		return nil
	}
	var stores []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			stores = append(stores, s)
		}
	}
	return stores
}

// handleScanReceipt accepts a multipart upload, stores the image, and
// returns the extracted draft receipt without persisting it
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		msg := "No file provided"
		if err.Error() == "http: no such file" {
			msg = "No file was selected. Please choose a file to upload."
		}
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		respondError(w, http.StatusBadRequest, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		respondError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeForExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	draft, err := s.service.ScanReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

// contentTypeForExt guesses a MIME type from a filename extension
func contentTypeForExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleCreateReceipt persists a reviewed receipt
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var rec receipt.Receipt
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateReceipt(&rec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.CreateReceipt(&rec); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

// handleListReceipts returns all receipts, or an export dump when
// ?action=export is given
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") == "export" {
		format := r.URL.Query().Get("format")
		data, contentType, err := s.service.ExportReceipts(format)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if format == "" {
			format = receipt.ExportJSON
		}
		filename := fmt.Sprintf("receipts_%s.%s", time.Now().Format(time.DateOnly), format)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Write(data)
		return
	}

	receipts, err := s.service.ListReceipts()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipts)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetReceipt(pathParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleGetReceiptFile returns the stored image for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(pathParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleUpdateReceipt applies a partial update to a receipt
func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	var req UpdateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	update := receipt.ReceiptUpdate{
		StoreNameSelected: req.StoreNameSelected,
		Items:             req.Items,
	}
	if req.BillingDate != nil {
		date, err := time.Parse(time.DateOnly, *req.BillingDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "billingDate must be YYYY-MM-DD")
			return
		}
		update.BillingDate = &date
	}

	rec, err := s.service.UpdateReceipt(pathParam(r, "id"), update)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleDeleteReceipt deletes a receipt and its image
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(pathParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListItems returns all processed items, optionally filtered by a
// ?q= substring search on the canonical name
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items.SearchItems(receipts, r.URL.Query().Get("q")))
}

// handleGetItem returns one processed item by canonical name
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	item := items.GetItemByName(receipts, pathParam(r, "name"))
	if item == nil {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// handleItemStats returns summary statistics for an item, optionally
// restricted to a store allow-list
func (s *Server) handleItemStats(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	item := items.GetItemByName(receipts, pathParam(r, "name"))
	stats := analytics.CalculateStatistics(item, storeFilter(r))
	if stats == nil {
		respondError(w, http.StatusNotFound, "No data for item")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// handleItemChart returns chart-ready series for an item
func (s *Server) handleItemChart(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	item := items.GetItemByName(receipts, pathParam(r, "name"))
	if item == nil {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}

	points := analytics.PrepareChartData(item, storeFilter(r))
	if points == nil {
		points = []analytics.ChartPoint{}
	}
	respondJSON(w, http.StatusOK, points)
}

// handleRenameItem rewrites an item name across all receipts
func (s *Server) handleRenameItem(w http.ResponseWriter, r *http.Request) {
	var req RenameItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.service.RenameItem(req.OldName, req.NewName)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, RenameItemResponse{UpdatedReceipts: updated})
}

// handleAnalyticsStores returns every store seen on receipts together
// with its chart color
func (s *Server) handleAnalyticsStores(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	stores := analytics.UniqueStores(receipts)
	infos := make([]StoreInfo, 0, len(stores))
	for i, store := range stores {
		infos = append(infos, StoreInfo{Store: store, Color: analytics.StoreColor(store, i)})
	}
	respondJSON(w, http.StatusOK, infos)
}

// handleListStores returns the store reference list
func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.service.ListStores()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stores)
}

// handleAddStore adds a store to the reference list
func (s *Server) handleAddStore(w http.ResponseWriter, r *http.Request) {
	s.handleAddName(w, r, s.service.AddStore)
}

// handleRemoveStore removes a store from the reference list
func (s *Server) handleRemoveStore(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveStore(pathParam(r, "name")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListUnits returns the unit reference list
func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.service.ListUnits()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, units)
}

// handleAddUnit adds a unit to the reference list
func (s *Server) handleAddUnit(w http.ResponseWriter, r *http.Request) {
	s.handleAddName(w, r, s.service.AddUnit)
}

// handleRemoveUnit removes a unit from the reference list
func (s *Server) handleRemoveUnit(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveUnit(pathParam(r, "name")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddName(w http.ResponseWriter, r *http.Request, add func(string) error) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := add(req.Name); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// receiptScanPrompt is the shared prompt used by all LLM providers for
// extracting line items from receipts.
const receiptScanPrompt = `You are an expert receipt data extraction AI. Analyze this receipt image and extract ALL information with careful attention to multi-line items and pricing details.

CRITICAL INSTRUCTIONS:
1. Extract ALL items with their details from the receipt
2. Extract the DATE shown on the receipt
3. Return ONLY a valid JSON object - no explanations, no markdown code blocks, no extra text
4. For missing or unreadable values, use null
5. For dates, use format: YYYY-MM-DD
6. For currency amounts, use numbers without symbols (e.g., 50.00 not "$50.00")

REQUIRED JSON STRUCTURE:
{
  "storeNameScanned": "detected store name from receipt or null",
  "receiptDate": "YYYY-MM-DD format (date shown on receipt) or null",
  "items": [
    {
      "name": "item name",
      "quantity": number,
      "unitPrice": number or null,
      "totalPrice": number,
      "unit": "unit type (e.g., kg, lb, lbs, g, oz, pcs, ea) or null"
    }
  ],
  "total": total amount as number
}

EXTRACTION RULES:
- Extract the store name from the top of the receipt
- Convert any date format to YYYY-MM-DD (e.g., "12/10/2025" becomes "2025-12-10")
- For each item, get: name, quantity, unit price (if shown), and total price
- Include units like "kg", "lb", "lbs", "g", "oz", "ea", "pcs" if specified
- The total should match the receipt's grand total

MULTI-LINE ITEM DETECTION (VERY IMPORTANT):
- Some items span multiple lines. A line like "0.10 lb @ $2.99/lb" holds the
  quantity, unit, and unit price for the item named on the previous line.
  Combine them into ONE item: name from the first line, quantity 0.10,
  unit "lb", unitPrice 2.99, totalPrice 0.30.
- If weight is embedded in the item name (e.g., "Paneer 226 G"), keep the
  full name, extract quantity 226 and unit "g", and compute
  unitPrice = totalPrice / quantity.
- For simple items without weight info: quantity 1, unit null, unitPrice
  equal to totalPrice.`

// pdfToImage converts a PDF to a PNG image
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Render the first page (most receipts are single page)
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// imageToPNG converts any image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not supported by the standard
	// image package
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format by
// inspecting the ftyp box brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// convertToPNG converts PDFs and non-PNG images to PNG format.
// Returns the PNG data and a boolean indicating if conversion occurred
func convertToPNG(imageData []byte, mimeType string) ([]byte, bool, error) {
	if mimeType == "application/pdf" {
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	} else if mimeType != "image/png" || isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
	return imageData, false, nil
}

// prepareImageData normalizes the MIME type and converts the image to PNG
// if needed. Returns the final image data, the MIME type to use, and
// whether conversion occurred
func prepareImageData(imageData []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default
	}

	finalImageData, converted, err := convertToPNG(imageData, mimeType)
	if err != nil {
		return nil, "", false, err
	}

	// After conversion the data is always PNG
	return finalImageData, "image/png", converted, nil
}

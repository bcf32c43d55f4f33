package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/fintelhq/fintel/internal/compliance"
	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/providers/oracle"
)

const oracleName = "ocr"

// HTTPExtractor calls a vision-model extraction endpoint.
type HTTPExtractor struct {
	cfg    config.OCRConfig
	client *http.Client
}

// NewHTTP builds an HTTPExtractor with the configured timeout.
func NewHTTP(cfg config.OCRConfig) *HTTPExtractor {
	return &HTTPExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type extractRequest struct {
	Model    string `json:"model,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

type wireLineItem struct {
	Description string  `json:"description"`
	HSNCode     string  `json:"hsnCode"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

type extractResponse struct {
	InvoiceNumber string         `json:"invoiceNumber"`
	VendorName    string         `json:"vendorName"`
	InvoiceDate   string         `json:"invoiceDate"`
	TotalAmount   float64        `json:"totalAmount"`
	GSTNumbers    []string       `json:"gstNumbers"`
	GSTRate       string         `json:"gstRate"`
	CGSTRate      string         `json:"cgstRate"`
	SGSTRate      string         `json:"sgstRate"`
	IGSTRate      string         `json:"igstRate"`
	HSNCode       string         `json:"hsnCode"`
	HSNCodes      []string       `json:"hsnCodes"`
	LineItems     []wireLineItem `json:"lineItems"`
	Confidence    float64        `json:"confidence"`
	RawText       string         `json:"rawText"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, filename string, content []byte) (*Extraction, error) {
	payload, err := json.Marshal(extractRequest{
		Model:    e.cfg.Model,
		Filename: filename,
		MimeType: mimeTypeFor(filename),
		Content:  base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ocr: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, oracle.WrapTransport(oracleName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, oracle.WrapTransport(oracleName, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr: unexpected status %d", resp.StatusCode)
	}

	var wire extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("ocr: decode response: %w", err)
	}

	extraction := fromWire(wire)
	if !extraction.Usable() {
		return nil, ErrMalformed
	}
	return extraction, nil
}

func fromWire(wire extractResponse) *Extraction {
	extraction := &Extraction{
		InvoiceNumber: wire.InvoiceNumber,
		VendorName:    wire.VendorName,
		InvoiceDate:   wire.InvoiceDate,
		TotalAmount:   wire.TotalAmount,
		GSTNumbers:    sanitizeGSTNumbers(wire.GSTNumbers),
		GSTRate:       wire.GSTRate,
		CGSTRate:      wire.CGSTRate,
		SGSTRate:      wire.SGSTRate,
		IGSTRate:      wire.IGSTRate,
		HSNCode:       wire.HSNCode,
		HSNCodes:      wire.HSNCodes,
		Confidence:    wire.Confidence,
		RawText:       wire.RawText,
	}
	for _, item := range wire.LineItems {
		extraction.LineItems = append(extraction.LineItems, invoicedomain.LineItem{
			Description: item.Description,
			HSNCode:     item.HSNCode,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      item.Amount,
		})
	}
	return extraction
}

// sanitizeGSTNumbers drops anything that is not exactly 15 characters
// after OCR noise is stripped. Partial matches are worse than none.
func sanitizeGSTNumbers(raw []string) []string {
	var out []string
	for _, candidate := range raw {
		cleaned := compliance.CleanGSTNumber(candidate)
		if len(cleaned) == 15 {
			out = append(out, cleaned)
		}
	}
	return out
}

func mimeTypeFor(filename string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(filename)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

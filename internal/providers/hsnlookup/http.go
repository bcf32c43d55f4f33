package hsnlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/providers/oracle"
)

const oracleName = "hsn-lookup"

// HTTPClient queries a tax rate lookup API.
type HTTPClient struct {
	cfg    config.HSNLookupConfig
	client *http.Client
}

// NewHTTP builds an HTTPClient with the configured timeout.
func NewHTTP(cfg config.HSNLookupConfig) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type wireResponse struct {
	Valid       bool    `json:"valid"`
	GSTRate     float64 `json:"gst_rate"`
	Description string  `json:"description"`
}

func (c *HTTPClient) VerifyCode(ctx context.Context, code string) (*invoicedomain.HSNVerification, error) {
	codeType := DetectCodeType(code)
	if codeType == "" {
		return &invoicedomain.HSNVerification{Code: code, IsValid: false}, nil
	}

	url := fmt.Sprintf("%s/api/v1/rates/%s", strings.TrimRight(c.cfg.BaseURL, "/"), code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("hsnlookup: build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, oracle.WrapTransport(oracleName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, oracle.WrapTransport(oracleName, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return &invoicedomain.HSNVerification{Code: code, CodeType: codeType, IsValid: false}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("hsnlookup: unexpected status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("hsnlookup: decode response: %w", err)
	}

	return &invoicedomain.HSNVerification{
		Code:        code,
		CodeType:    codeType,
		IsValid:     wire.Valid,
		GSTRate:     wire.GSTRate,
		Description: wire.Description,
	}, nil
}

func (c *HTTPClient) VerifyLineItems(ctx context.Context, items []invoicedomain.LineItem, extractedRate float64) (*invoicedomain.LineItemVerification, error) {
	return verifyLineItems(ctx, c, items, extractedRate)
}

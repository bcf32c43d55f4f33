package gstlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fintelhq/fintel/internal/config"
	"github.com/fintelhq/fintel/internal/providers/oracle"
)

const oracleName = "gst-lookup"

// HTTPClient queries a RapidAPI-hosted GST registry mirror.
type HTTPClient struct {
	cfg    config.GSTLookupConfig
	client *http.Client
}

// NewHTTP builds an HTTPClient with the configured timeout.
func NewHTTP(cfg config.GSTLookupConfig) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type wireResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Status    string `json:"sts"`
		LegalName string `json:"lgnm"`
		TradeName string `json:"tradeNam"`
	} `json:"data"`
}

func (c *HTTPClient) Verify(ctx context.Context, gstNumber string) (*Result, error) {
	url := fmt.Sprintf("https://%s/getGSTDetailsUsingGST/%s", c.cfg.Host, gstNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gstlookup: build request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.Host)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, oracle.WrapTransport(oracleName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, oracle.WrapTransport(oracleName, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return &Result{Success: false}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("gstlookup: unexpected status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("gstlookup: decode response: %w", err)
	}

	return &Result{
		Success:   wire.Success,
		IsActive:  strings.EqualFold(strings.TrimSpace(wire.Data.Status), "active"),
		LegalName: strings.TrimSpace(wire.Data.LegalName),
		TradeName: strings.TrimSpace(wire.Data.TradeName),
	}, nil
}

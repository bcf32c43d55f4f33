// Package classifier integrates the external anomaly model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	"github.com/fintelhq/fintel/internal/providers/oracle"
)

const oracleName = "classifier"

// Predictor is the anomaly model boundary.
type Predictor interface {
	Predict(ctx context.Context, features []float64) (*invoicedomain.MLPrediction, error)
}

// NoOpPredictor is wired when no model endpoint is configured. Its
// prediction is marked skipped so scoring applies no risk adjustment.
type NoOpPredictor struct{}

func (NoOpPredictor) Predict(ctx context.Context, features []float64) (*invoicedomain.MLPrediction, error) {
	return &invoicedomain.MLPrediction{Skipped: true}, nil
}

// HTTPPredictor calls a model serving endpoint.
type HTTPPredictor struct {
	cfg    config.ClassifierConfig
	client *http.Client
}

// NewHTTP builds an HTTPPredictor with the configured timeout.
func NewHTTP(cfg config.ClassifierConfig) *HTTPPredictor {
	return &HTTPPredictor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type wireRequest struct {
	Features []float64 `json:"features"`
}

type wireResponse struct {
	IsAnomaly  bool    `json:"isAnomaly"`
	Confidence float64 `json:"confidence"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, features []float64) (*invoicedomain.MLPrediction, error) {
	payload, err := json.Marshal(wireRequest{Features: features})
	if err != nil {
		return nil, fmt.Errorf("classifier: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("classifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, oracle.WrapTransport(oracleName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, oracle.WrapTransport(oracleName, fmt.Errorf("status %d", resp.StatusCode))
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("classifier: decode response: %w", err)
	}

	return &invoicedomain.MLPrediction{
		IsAnomaly:  wire.IsAnomaly,
		Confidence: wire.Confidence,
	}, nil
}

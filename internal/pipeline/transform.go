package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/sap-forecast/internal/domain"
)

// Forecaster produces a forecast for a single request.
type Forecaster interface {
	Forecast(ctx context.Context, req domain.Request) (domain.Result, error)
}

// ForecastTransformer implements Transformer by decoding the JSON request
// body and handing it to a Forecaster.
type ForecastTransformer struct {
	forecaster Forecaster
	logger     *slog.Logger
}

// NewTransformer creates a ForecastTransformer.
func NewTransformer(forecaster Forecaster, logger *slog.Logger) *ForecastTransformer {
	return &ForecastTransformer{
		forecaster: forecaster,
		logger:     logger,
	}
}

// Transform decodes the request and forecasts it. A request without an id
// takes the message key as its id.
func (t *ForecastTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.Result, error) {
	req, err := decodeRequest(raw)
	if err != nil {
		return domain.Result{}, err
	}
	t.logger.Debug("forecasting request", "request_id", req.ID, "offset", raw.Offset)
	return t.forecaster.Forecast(ctx, req)
}

func decodeRequest(raw domain.RawMessage) (domain.Request, error) {
	var req domain.Request
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.Request{}, fmt.Errorf("%w: decode request: %v", domain.ErrInvalidInput, err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	return req, nil
}

package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/sap-forecast/internal/domain"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

// handleForecastQuery serves GET /forecast?lat=..&lon=.. or ?address=..
func (s *Server) handleForecastQuery(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.forecast(w, r, req)
}

// handleForecastBody serves POST /forecast with a JSON request body.
func (s *Server) handleForecastBody(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode request: %v", domain.ErrInvalidInput, err))
		return
	}
	s.forecast(w, r, req)
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request, req domain.Request) {
	res, err := s.forecaster.Forecast(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func requestFromQuery(r *http.Request) (domain.Request, error) {
	q := r.URL.Query()
	req := domain.Request{
		ID:      q.Get("id"),
		Address: q.Get("address"),
	}
	var err error
	if req.Latitude, err = parseCoordinate(q.Get("lat"), "lat"); err != nil {
		return domain.Request{}, err
	}
	if req.Longitude, err = parseCoordinate(q.Get("lon"), "lon"); err != nil {
		return domain.Request{}, err
	}
	return req, nil
}

func parseCoordinate(v, name string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, name)
	}
	return &f, nil
}

// statusFor maps forecast errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoQualifyingData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("forecast failed", "error", err, "path", r.URL.Path)
	} else {
		s.logger.Info("forecast rejected", "error", err, "status", status)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

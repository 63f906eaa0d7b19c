package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fieldops/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var ErrNoGeocodeResult = errors.New("address could not be geocoded")

// Geocoder resolves a free-text address to a point.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*domain.Location, error)
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimGeocoder Geocoder for the OpenStreetMap Nominatim search API.
type NominatimGeocoder struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewNominatimGeocoder(baseURL string, logger *zap.Logger) *NominatimGeocoder {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "fieldops/1.0")

	return &NominatimGeocoder{httpClient: client, logger: logger}
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*domain.Location, error) {
	var places []nominatimPlace
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"limit":  "1",
			"q":      address,
		}).
		SetResult(&places).
		Get("/search")
	if err != nil {
		g.logger.Warn("Geocoder request failed", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	if resp.IsError() {
		g.logger.Warn("Geocoder returned error status",
			zap.String("address", address),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("geocode request: status %d", resp.StatusCode())
	}
	if len(places) == 0 {
		return nil, ErrNoGeocodeResult
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode lat: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode lon: %w", err)
	}
	return &domain.Location{Lat: lat, Lon: lon}, nil
}

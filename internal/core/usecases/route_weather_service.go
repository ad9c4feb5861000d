package usecases

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samirrijal/routeweather/internal/core/domain"
	"github.com/samirrijal/routeweather/internal/core/ports"
)

// MaxPlaceLength is the longest origin or destination the backend accepts.
const MaxPlaceLength = 500

// RouteWeatherService validates trip endpoints and fetches route weather.
type RouteWeatherService struct {
	fetcher ports.RouteWeatherFetcher
}

// NewRouteWeatherService creates a new RouteWeatherService.
func NewRouteWeatherService(fetcher ports.RouteWeatherFetcher) *RouteWeatherService {
	return &RouteWeatherService{fetcher: fetcher}
}

// Fetch returns the backend payload as received.
func (s *RouteWeatherService) Fetch(ctx context.Context, origin, destination, departureTime string) (domain.RouteWeatherResponse, error) {
	origin, err := validatePlace("origin", origin)
	if err != nil {
		return nil, err
	}
	destination, err = validatePlace("destination", destination)
	if err != nil {
		return nil, err
	}

	return s.fetcher.FetchRouteWeather(ctx, origin, destination, departureTime)
}

// Plan fetches and decodes the payload into the typed route model.
func (s *RouteWeatherService) Plan(ctx context.Context, origin, destination, departureTime string) (*domain.MultiRouteResponse, error) {
	raw, err := s.Fetch(ctx, origin, destination, departureTime)
	if err != nil {
		return nil, err
	}

	var resp domain.MultiRouteResponse
	if err := raw.Decode(&resp); err != nil {
		return nil, &domain.DecodeError{Err: err}
	}
	return &resp, nil
}

func validatePlace(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if n := utf8.RuneCountInString(value); n > MaxPlaceLength {
		return "", fmt.Errorf("%s must be at most %d characters, got %d", field, MaxPlaceLength, n)
	}
	return value, nil
}

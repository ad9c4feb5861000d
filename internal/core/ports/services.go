package ports

import (
	"context"

	"github.com/samirrijal/routeweather/internal/core/domain"
)

// RouteWeatherFetcher asks the backend for the weather along the routes
// between two places. departureTime may be blank.
type RouteWeatherFetcher interface {
	FetchRouteWeather(ctx context.Context, origin, destination, departureTime string) (domain.RouteWeatherResponse, error)
}


package domain

import (
	"encoding/json"
	"time"
)

// RouteWeatherRequest is the payload posted to the route-weather endpoint.
// DepartureTime is nil when no time was given and is encoded as JSON null.
type RouteWeatherRequest struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DepartureTime *string `json:"departure_time"`
}

// RouteWeatherResponse is the backend payload, passed through untouched.
type RouteWeatherResponse json.RawMessage

// Decode binds the payload to v.
func (r RouteWeatherResponse) Decode(v any) error {
	return json.Unmarshal(r, v)
}

// MarshalJSON returns the payload as received.
func (r RouteWeatherResponse) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// MultiRouteResponse is the shape the backend currently returns.
type MultiRouteResponse struct {
	OriginAddress      string               `json:"origin_address"`
	DestinationAddress string               `json:"destination_address"`
	Routes             []RouteWithWeather   `json:"routes"`
	Recommendation     *RouteRecommendation `json:"recommendation,omitempty"`
}

// RouteWithWeather is one driving alternative with sampled waypoints.
type RouteWithWeather struct {
	RouteIndex           int        `json:"route_index"`
	OverviewPolyline     string     `json:"overview_polyline"`
	Summary              string     `json:"summary"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`
	TotalDistanceKm      float64    `json:"total_distance_km"`
	Waypoints            []Waypoint `json:"waypoints"`
}

// Waypoint is a point along a route with its expected arrival time.
type Waypoint struct {
	Location         LatLng       `json:"location"`
	MinutesFromStart int          `json:"minutes_from_start"`
	EstimatedTime    time.Time    `json:"estimated_time"`
	Weather          *WeatherData `json:"weather,omitempty"` // nil when the forecast lookup failed
}

// WeatherData is the hourly forecast closest to a waypoint's estimated time.
type WeatherData struct {
	TemperatureC             float64 `json:"temperature_c"`
	ApparentTemperatureC     float64 `json:"apparent_temperature_c"`
	PrecipitationMm          float64 `json:"precipitation_mm"`
	PrecipitationProbability int     `json:"precipitation_probability"`
	WeatherCode              int     `json:"weather_code"`
	WeatherDescription       string  `json:"weather_description"`
	WindSpeedKmh             float64 `json:"wind_speed_kmh"`
	HumidityPercent          int     `json:"humidity_percent"`
}

// RouteRecommendation ranks the routes. Scores and Advisories are indexed by route.
type RouteRecommendation struct {
	RecommendedRouteIndex int                 `json:"recommended_route_index"`
	Scores                []RouteScore        `json:"scores"`
	Advisories            [][]WeatherAdvisory `json:"advisories"`
}

type RouteScore struct {
	OverallScore         float64 `json:"overall_score"`
	DurationScore        float64 `json:"duration_score"`
	WeatherScore         float64 `json:"weather_score"`
	RecommendationReason string  `json:"recommendation_reason"`
}

// Advisory severities.
const (
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

type WeatherAdvisory struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// HealthStatus is the body of the backend liveness probe.
type HealthStatus struct {
	Status string `json:"status"`
}

package domain

// LatLng represents a geographic coordinate (WGS 84).
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

package models

// Location is a parsed geographic coordinate pair. The engine's distance and
// routing math lives in package geo; this type is the shared data shape
// models embed and repositories scan into.
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// IsValid reports whether the coordinate pair is within the legal WGS84 range.
func (l Location) IsValid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

package model

import (
	"fmt"
	"math"
)

// Zoom bounds for the map viewport. Operations clamp at the boundary
// rather than erroring.
const (
	MinZoom = 3
	MaxZoom = 18
)

// Coordinate is a geographic point. Both components must be finite and
// within range.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) ||
		math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("coordinate components must be finite")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// ViewState drives the map render: a center and a clamped zoom level.
type ViewState struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
}

// DefaultViewState centers on a world view at minimum detail until a
// geolocation read or a map click provides a real coordinate.
func DefaultViewState() ViewState {
	return ViewState{
		Center: Coordinate{Latitude: 20, Longitude: 0},
		Zoom:   MinZoom,
	}
}

// WithZoom returns a copy with the zoom clamped into [MinZoom, MaxZoom].
func (v ViewState) WithZoom(zoom int) ViewState {
	v.Zoom = ClampZoom(zoom)
	return v
}

// ZoomIn increments zoom, clamping at MaxZoom.
func (v ViewState) ZoomIn() ViewState {
	return v.WithZoom(v.Zoom + 1)
}

// ZoomOut decrements zoom, clamping at MinZoom.
func (v ViewState) ZoomOut() ViewState {
	return v.WithZoom(v.Zoom - 1)
}

// Recenter moves the viewport to the given coordinate, keeping zoom.
func (v ViewState) Recenter(center Coordinate) ViewState {
	v.Center = center
	return v
}

func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

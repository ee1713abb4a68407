package dto

import "mapchat.app/server/internal/model"

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) ToModel() model.Coordinate {
	return model.Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
}

type ViewStateRequest struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
}

type ViewStateResponse struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
}

func FromViewState(v model.ViewState) ViewStateResponse {
	return ViewStateResponse{
		Center: Coordinate{Latitude: v.Center.Latitude, Longitude: v.Center.Longitude},
		Zoom:   v.Zoom,
	}
}

package models

import (
	"gorm.io/gorm"
)

// Stage is a pickup point on a route. Seq orders stages from the
// route's start location and is unique per route.
type Stage struct {
	gorm.Model

	RouteID uint    `json:"route_id" gorm:"not null;uniqueIndex:ux_route_stage_seq"`
	Seq     int     `json:"seq" binding:"required" gorm:"not null;uniqueIndex:ux_route_stage_seq"`
	Name    string  `json:"name" binding:"required"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

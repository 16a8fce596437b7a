package models

import (
	"math"
	"time"
)

type AlertCategory string

const (
	CategoryEmergency AlertCategory = "emergency"
	CategoryMedical   AlertCategory = "medical"
	CategorySecurity  AlertCategory = "security"
	CategoryOther     AlertCategory = "other"
)

func (c AlertCategory) Valid() bool {
	switch c {
	case CategoryEmergency, CategoryMedical, CategorySecurity, CategoryOther:
		return true
	}
	return false
}

type AlertStatus string

const (
	StatusActive   AlertStatus = "active"
	StatusResolved AlertStatus = "resolved"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite degrees.
func (l Location) Valid() bool {
	return !math.IsNaN(l.Lat) && !math.IsInf(l.Lat, 0) &&
		!math.IsNaN(l.Lng) && !math.IsInf(l.Lng, 0) &&
		l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Alert is one emergency submission. ID and CreatedAt are assigned at
// creation and never change; Status only moves active -> resolved.
type Alert struct {
	ID            string        `json:"id"`
	SubmitterID   string        `json:"submitterId"`
	SubmitterName string        `json:"submitterName"`
	Location      Location      `json:"location"`
	Category      AlertCategory `json:"category"`
	Status        AlertStatus   `json:"status"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"createdAt"`
}

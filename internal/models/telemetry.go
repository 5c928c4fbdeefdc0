package models

import "time"

// LocationUpdate is a periodic position report from an ambulance unit.
type LocationUpdate struct {
	AmbulanceID string    `json:"ambulance_id"`
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

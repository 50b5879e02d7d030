package models

// HydroSystem is one physical hydropower network, the owner of a set of
// reservoirs. Projects and forecasts are always scoped to a single system.
type HydroSystem struct {
	ID          int64  `json:"-" db:"hydro_system_id"`
	UID         string `json:"uid" db:"hydro_system_uid"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Reservoir belongs to a hydro system. Its name is unique within the system
// and serves as the lookup key for run start-volume maps.
type Reservoir struct {
	ID            int64   `json:"-" db:"reservoir_id"`
	UID           string  `json:"uid" db:"reservoir_uid"`
	HydroSystemID int64   `json:"-" db:"hydro_system_id"`
	Name          string  `json:"name" db:"name"`
	MinVolume     float64 `json:"minVolume" db:"min_volume"`
	MaxVolume     float64 `json:"maxVolume" db:"max_volume"`
}

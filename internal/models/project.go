package models

// Project binds a unique name to one hydro system. Runs are owned by their
// project and never reference runs outside it.
type Project struct {
	ID            int64  `json:"-" db:"project_id"`
	UID           string `json:"uid" db:"project_uid"`
	Name          string `json:"name" db:"name"`
	HydroSystemID int64  `json:"-" db:"hydro_system_id"`
}

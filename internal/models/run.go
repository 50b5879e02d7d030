package models

import "time"

// ProjectRun is one training or evaluation execution. EvaluatedOn is set
// only for evaluation runs and points at the agent being evaluated. The two
// previous-run references carry the lineage that bounds the episode horizon.
type ProjectRun struct {
	ID                  int64      `json:"-" db:"project_run_id"`
	UID                 string     `json:"uid" db:"project_run_uid"`
	ProjectID           int64      `json:"-" db:"project_id"`
	ForecastID          int64      `json:"-" db:"forecast_id"`
	StartTime           *time.Time `json:"startTime" db:"start_time"`
	EndTime             *time.Time `json:"endTime" db:"end_time"`
	Settings            string     `json:"-" db:"settings"`
	Comment             string     `json:"comment" db:"comment"`
	EvaluatedOn         *int64     `json:"-" db:"evaluated_on"`
	PreviousRunID       *int64     `json:"-" db:"previous_run_id"`
	PreviousQValueRunID *int64     `json:"-" db:"previous_qvalue_run_id"`
}

// IsEvaluation reports whether this run evaluates an agent rather than
// training new ones.
func (r *ProjectRun) IsEvaluation() bool {
	return r.EvaluatedOn != nil
}

// StartVolume is the initial fill level of one reservoir for one run.
// Rows are created atomically with their run, one per reservoir of the
// project's hydro system.
type StartVolume struct {
	RunID       int64   `json:"-" db:"project_run_id"`
	ReservoirID int64   `json:"-" db:"reservoir_id"`
	Value       float64 `json:"value" db:"value"`
}

// RunSignal is an out-of-band control signal appended for the compute
// backend to consume. Values match the backend's wire contract.
type RunSignal int

const (
	SignalTerminate           RunSignal = 0
	SignalSpawnBestWithBuffer RunSignal = 1
	SignalSpawnBestNoBuffer   RunSignal = 2
)

// ParseRunSignal maps the API-facing signal names onto their values.
func ParseRunSignal(name string) (RunSignal, bool) {
	switch name {
	case "Terminate":
		return SignalTerminate, true
	case "SpawnBestWithBuffer":
		return SignalSpawnBestWithBuffer, true
	case "SpawnBestNoBuffer":
		return SignalSpawnBestNoBuffer, true
	default:
		return 0, false
	}
}

// RunControl is one appended control row. The API only ever inserts these;
// the backend consumes them asynchronously.
type RunControl struct {
	ID     int64     `json:"-" db:"run_control_id"`
	RunID  int64     `json:"-" db:"project_run_id"`
	Signal RunSignal `json:"signal" db:"signal"`
}

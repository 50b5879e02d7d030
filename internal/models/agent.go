package models

import "time"

// Agent is one training attempt inside a run. BestStep/BestStepValue track
// the strongest evaluation result the agent has reached so far.
type Agent struct {
	ID            int64      `json:"-" db:"agent_id"`
	UID           string     `json:"uid" db:"agent_uid"`
	ProjectID     int64      `json:"-" db:"project_id"`
	ProjectRunID  int64      `json:"-" db:"project_run_id"`
	Seed          int        `json:"seed" db:"seed"`
	BestModelPath string     `json:"bestModelPath" db:"best_model_path"`
	StartTime     time.Time  `json:"startTime" db:"start_time"`
	EndTime       *time.Time `json:"endTime" db:"end_time"`
	Ancestor      *int64     `json:"-" db:"ancestor"`
	BestStep      *int       `json:"bestStep" db:"best_step"`
	BestStepValue *float64   `json:"bestStepValue" db:"best_step_value"`
}

// StepSeries is a per-agent training series ("scalars" series feed the
// progress views).
type StepSeries struct {
	ID          int64      `json:"-" db:"step_series_id"`
	AgentID     int64      `json:"-" db:"agent_id"`
	StartTime   time.Time  `json:"startTime" db:"start_time"`
	EndTime     *time.Time `json:"endTime" db:"end_time"`
	Description string     `json:"description" db:"description"`
	Type        string     `json:"type" db:"series_type"`
}

// StepPoint is one (step, timestamp, value) sample from a step series.
type StepPoint struct {
	SeriesID  int64     `json:"-" db:"step_series_id"`
	Step      int       `json:"step" db:"step"`
	Timestamp time.Time `json:"timestamp" db:"time_stamp"`
	Value     float64   `json:"value" db:"value"`
}

// EvaluationEpisode groups the report series produced when one agent is
// evaluated against one scenario.
type EvaluationEpisode struct {
	ID           int64  `json:"-" db:"evaluation_episode_id"`
	ProjectRunID int64  `json:"-" db:"project_run_id"`
	AgentID      int64  `json:"-" db:"agent_id"`
	Description  string `json:"description" db:"description"`
}

// ReportSeries is one named series within an evaluation episode.
type ReportSeries struct {
	ID                  int64      `json:"-" db:"report_series_id"`
	EvaluationEpisodeID int64      `json:"-" db:"evaluation_episode_id"`
	StartTime           time.Time  `json:"startTime" db:"start_time"`
	EndTime             *time.Time `json:"endTime" db:"end_time"`
	Description         string     `json:"description" db:"description"`
	Type                string     `json:"type" db:"series_type"`
}

// ReportPoint is one sample of a report series at a given training step.
type ReportPoint struct {
	SeriesID  int64     `json:"-" db:"report_series_id"`
	Step      int       `json:"step" db:"step"`
	Index     int       `json:"index" db:"value_index"`
	Timestamp time.Time `json:"timestamp" db:"time_stamp"`
	Value     float64   `json:"value" db:"value"`
}

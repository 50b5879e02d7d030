package query

import "time"

// StepSeriesView is one training series shaped for the API: parallel step
// and value vectors.
type StepSeriesView struct {
	Name   string    `json:"name"`
	Steps  []float64 `json:"steps"`
	Values []float64 `json:"values"`
}

// RunDetails is the progress/details payload for a run.
type RunDetails struct {
	Progress float64          `json:"progress"`
	Status   []StepSeriesView `json:"status"`
}

// TimeSeriesView is one named value vector within a report episode.
type TimeSeriesView struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ReportEpisode groups the series reported for one evaluation episode.
type ReportEpisode struct {
	Name   string           `json:"name"`
	Series []TimeSeriesView `json:"series"`
}

// ReportData is the solution/evaluation payload: per-episode series over a
// shared time index.
type ReportData struct {
	Episodes   []ReportEpisode `json:"episodes"`
	TimeStamps []time.Time     `json:"timeStamps"`
}

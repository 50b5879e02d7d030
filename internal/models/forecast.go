package models

import "time"

// Upload groups the time-data series rows created by one scenario-upload
// session. Every forecast owns exactly one upload.
type Upload struct {
	ID         int64     `json:"-" db:"upload_id"`
	UploadTime time.Time `json:"uploadTime" db:"upload_time"`
	SourceFile string    `json:"sourceFile" db:"source_file"`
}

// Forecast is a named bundle of inflow/price scenario series for a hydro
// system. Its name is unique per system.
type Forecast struct {
	ID            int64  `json:"-" db:"forecast_id"`
	UID           string `json:"uid" db:"forecast_uid"`
	UploadID      int64  `json:"-" db:"upload_id"`
	HydroSystemID int64  `json:"-" db:"hydro_system_id"`
	Name          string `json:"name" db:"name"`
}

type TimeDataSeriesType string

const (
	SeriesTypeInflow TimeDataSeriesType = "Inflow"
	SeriesTypePrice  TimeDataSeriesType = "Price"
)

// TimeDataSeries is an immutable named, typed time-ordered sequence. Start
// and end time are taken from the first and last uploaded timestamp.
type TimeDataSeries struct {
	ID          int64              `json:"-" db:"time_data_series_id"`
	UploadID    int64              `json:"-" db:"upload_id"`
	StartTime   time.Time          `json:"startTime" db:"start_time"`
	EndTime     time.Time          `json:"endTime" db:"end_time"`
	Description string             `json:"description" db:"description"`
	Type        TimeDataSeriesType `json:"type" db:"series_type"`
}

// TimeDataValue is one (timestamp, value) point of a series.
type TimeDataValue struct {
	SeriesID  int64     `json:"-" db:"time_data_series_id"`
	Timestamp time.Time `json:"timestamp" db:"time_stamp"`
	Value     float64   `json:"value" db:"value"`
}

// SeriesLink pairs one inflow series with one price series under a scenario
// name for a forecast. All scenarios of a forecast share one time index,
// enforced at upload time.
type SeriesLink struct {
	ID             int64 `json:"-" db:"series_link_id"`
	UploadID       int64 `json:"-" db:"upload_id"`
	ForecastID     int64 `json:"-" db:"forecast_id"`
	InflowSeriesID int64 `json:"-" db:"inflow_series_id"`
	PriceSeriesID  int64 `json:"-" db:"price_series_id"`
}

// ForecastScenario is the upload/download payload for one scenario: a shared
// time index with matching inflow and price vectors.
type ForecastScenario struct {
	TimeIndex    []time.Time `json:"timeIndex" binding:"required"`
	InflowSeries []float64   `json:"inflowSeries" binding:"required"`
	PriceSeries  []float64   `json:"priceSeries" binding:"required"`
}

// ForecastHorizon summarizes what run validation needs to know about a
// forecast: which system it belongs to, how many scenarios it has, and the
// time window covered by its first scenario.
type ForecastHorizon struct {
	HydroSystemID int64
	ScenarioCount int
	StartTime     time.Time
	EndTime       time.Time
}

package models

// ObservationRecord is one normalized PWS reading for a time window.
// Numeric fields are nil when the upstream payload did not carry them and
// always encode as null.
type ObservationRecord struct {
	Epoch        *int64   `json:"epoch"`
	ObsTimeLocal string   `json:"obsTimeLocal"`
	ObsTimeUTC   string   `json:"obsTimeUtc"`
	TempAvg      *float64 `json:"tempAvg"`
	DewptAvg     *float64 `json:"dewptAvg"`
	HumidityAvg  *float64 `json:"humidityAvg"`
	WindspeedAvg *float64 `json:"windspeedAvg"`
	WindgustHigh *float64 `json:"windgustHigh"`
	PressureMax  *float64 `json:"pressureMax"`
	PrecipTotal  *float64 `json:"precipTotal"`
}

// HistoryQuery is a validated request for one station-day of history.
type HistoryQuery struct {
	StationID string `json:"stationId"`
	Date      string `json:"date"`  // YYYYMMDD
	Units     string `json:"units"` // m, e, or whatever the caller sent
}

package render

import "github.com/kjstillabower/pws-history-proxy/internal/models"

// Headers are the fixed column titles of the history table.
var Headers = []string{"Hora local", "Temp", "Humedad", "Viento", "Racha", "Presión", "Precip."}

// Table is the rendered presentation text: what the page shows and what the CSV
// export writes.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Empty reports whether the table has no body rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// BuildTable renders one row per record. Humidity has no decimals; the other
// numeric columns have one.
func BuildTable(records []models.ObservationRecord) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			TimeLabel(r),
			Fmt(r.TempAvg, 1),
			Fmt(r.HumidityAvg, 0),
			Fmt(r.WindspeedAvg, 1),
			Fmt(r.WindgustHigh, 1),
			Fmt(r.PressureMax, 1),
			Fmt(r.PrecipTotal, 1),
		})
	}
	return Table{Headers: Headers, Rows: rows}
}

package render

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/kjstillabower/pws-history-proxy/internal/models"
)

// CSVFilename is the download name for exported history.
const CSVFilename = "pws_history.csv"

// ErrEmptyTable is returned by the CSV writers when there are no body rows to export.
var ErrEmptyTable = errors.New("no rows to export")

// recordHeaders are the column names of the full-precision export.
var recordHeaders = []string{
	"epoch", "obsTimeLocal", "obsTimeUtc", "tempAvg", "dewptAvg", "humidityAvg",
	"windspeedAvg", "windgustHigh", "pressureMax", "precipTotal",
}

// WriteCSV writes the header and body rows of t exactly as displayed. Every field is
// quoted, rows are separated by "\n" with no trailing newline.
// Returns ErrEmptyTable without writing anything when t has no body rows.
func WriteCSV(w io.Writer, t Table) error {
	if t.Empty() {
		return ErrEmptyTable
	}
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, csvLine(t.Headers))
	for _, row := range t.Rows {
		lines = append(lines, csvLine(row))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

// WriteRecordsCSV exports records with full numeric precision instead of the
// displayed text. Missing values are empty fields.
func WriteRecordsCSV(w io.Writer, records []models.ObservationRecord) error {
	if len(records) == 0 {
		return ErrEmptyTable
	}
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, csvLine(recordHeaders))
	for _, r := range records {
		lines = append(lines, csvLine([]string{
			int64Field(r.Epoch),
			r.ObsTimeLocal,
			r.ObsTimeUTC,
			floatField(r.TempAvg),
			floatField(r.DewptAvg),
			floatField(r.HumidityAvg),
			floatField(r.WindspeedAvg),
			floatField(r.WindgustHigh),
			floatField(r.PressureMax),
			floatField(r.PrecipTotal),
		}))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func int64Field(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

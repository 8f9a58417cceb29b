package render

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kjstillabower/pws-history-proxy/internal/models"
)

func TestLoadTemplates_success(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates() = %v; want nil", err)
	}
	if pageTmpl == nil {
		t.Fatal("LoadTemplates() left pageTmpl nil")
	}
}

func TestLoadTemplates_failure_sub(t *testing.T) {
	// Empty FS has no "templates" directory; ParseFS finds no files.
	err := loadTemplatesFromFS(fstest.MapFS{}, "templates")
	if err == nil {
		t.Fatal("loadTemplatesFromFS(emptyFS) = nil; want error")
	}
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
}

func TestLoadTemplates_failure_parse(t *testing.T) {
	badFS := fstest.MapFS{
		"templates/history.html": {Data: []byte("{{ .")},
	}
	if err := loadTemplatesFromFS(badFS, "templates"); err == nil {
		t.Fatal("loadTemplatesFromFS(badFS) = nil; want error")
	}
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
}

func TestRenderPage_notLoaded(t *testing.T) {
	prev := pageTmpl
	pageTmpl = nil
	t.Cleanup(func() { pageTmpl = prev })

	var buf bytes.Buffer
	err := RenderPage(&buf, NewPageData("", "", ""))
	if err == nil {
		t.Fatal("RenderPage() = nil; want error when templates not loaded")
	}
	if !strings.Contains(err.Error(), "not loaded") {
		t.Errorf("err = %q; want message containing \"not loaded\"", err.Error())
	}
}

func TestRenderPage_formOnly(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	var buf bytes.Buffer
	if err := RenderPage(&buf, NewPageData("", "20240305", "")); err != nil {
		t.Fatalf("RenderPage() = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<!DOCTYPE html>") {
		t.Error("output missing DOCTYPE")
	}
	if !strings.Contains(out, `value="2024-03-05"`) {
		t.Errorf("date input not pre-filled; got %q", out)
	}
	if !strings.Contains(out, `value="m" checked`) {
		t.Error("metric units not checked by default")
	}
	if strings.Contains(out, "<table") {
		t.Error("form-only page rendered a table")
	}
}

func TestRenderPage_noData(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	data := NewPageData("KSEA1", "20240101", "e")
	data.SetTable(BuildTable(nil))

	var buf bytes.Buffer
	if err := RenderPage(&buf, data); err != nil {
		t.Fatalf("RenderPage() = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, StatusNoData) {
		t.Errorf("output missing %q", StatusNoData)
	}
	if strings.Contains(out, "<table") || strings.Contains(out, "<tr>") {
		t.Error("no-data page rendered a table")
	}
	if strings.Contains(out, "csvBtn") {
		t.Error("no-data page rendered the CSV link")
	}
	if !strings.Contains(out, `value="e" checked`) {
		t.Error("imperial units not checked")
	}
}

func TestRenderPage_rows(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}
	records := []models.ObservationRecord{
		{ObsTimeLocal: "01:00", TempAvg: fp(5)},
		{ObsTimeLocal: "01:05", TempAvg: fp(5.5)},
		{ObsTimeLocal: "<b>x</b>"},
	}
	data := NewPageData("IMADRID123", "2024-01-01", "m")
	data.SetTable(BuildTable(records))

	var buf bytes.Buffer
	if err := RenderPage(&buf, data); err != nil {
		t.Fatalf("RenderPage() = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "OK (3 registros)") {
		t.Error("output missing OK status")
	}
	body := out[strings.Index(out, "<tbody>"):strings.Index(out, "</tbody>")]
	if n := strings.Count(body, "<tr>"); n != 3 {
		t.Errorf("body rows = %d, want 3", n)
	}
	if n := strings.Count(body, "<td>"); n != 21 {
		t.Errorf("body cells = %d, want 21", n)
	}
	if strings.Contains(out, "<b>x</b>") {
		t.Error("cell text not HTML-escaped")
	}
	if !strings.Contains(out, `id="csvBtn" href="`+CSVDataURLPrefix) {
		t.Errorf("CSV link missing or wrong; got %q", out)
	}
}

// TestPageData_CSVHrefMatchesTable verifies the download link carries the CSV of the
// rendered table itself.
func TestPageData_CSVHrefMatchesTable(t *testing.T) {
	table := BuildTable([]models.ObservationRecord{
		{ObsTimeLocal: "2024-01-01 00:04:56", TempAvg: fp(6.46), HumidityAvg: fp(87)},
		{ObsTimeLocal: "a & b", TempAvg: fp(-3.25)},
	})
	data := NewPageData("IMADRID123", "20240101", "m")
	data.SetTable(table)

	href := string(data.CSVHref)
	if !strings.HasPrefix(href, CSVDataURLPrefix) {
		t.Fatalf("CSVHref = %q, want data URL", href)
	}
	if strings.ContainsAny(href[len(CSVDataURLPrefix):], " \n\"&+") {
		t.Errorf("CSVHref payload not percent-encoded: %q", href)
	}
	got, err := url.PathUnescape(strings.TrimPrefix(href, CSVDataURLPrefix))
	if err != nil {
		t.Fatalf("PathUnescape: %v", err)
	}
	var want bytes.Buffer
	if err := WriteCSV(&want, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got != want.String() {
		t.Errorf("decoded CSV = %q, want %q", got, want.String())
	}
}

func TestPageData_NoCSVHrefWhenEmpty(t *testing.T) {
	data := NewPageData("IMADRID123", "20240101", "m")
	data.SetTable(BuildTable(nil))

	if data.CSVHref != "" {
		t.Errorf("CSVHref = %q, want empty", data.CSVHref)
	}
}

func TestPageData_SetError(t *testing.T) {
	data := NewPageData("KSEA1", "20240101", "m")
	data.SetTable(BuildTable([]models.ObservationRecord{{}}))
	data.SetError("HTTP 502", true)

	if data.Table != nil || data.CSVHref != "" {
		t.Error("SetError did not clear the table")
	}
	want := "Error: HTTP 502 · " + HintConnectivity
	if data.Status != want {
		t.Errorf("Status = %q, want %q", data.Status, want)
	}

	data.SetError(`{"error":"date must be YYYYMMDD"}`, false)
	if strings.Contains(data.Status, HintConnectivity) {
		t.Error("hint appended for non-connectivity error")
	}
}

func TestDateInputValue(t *testing.T) {
	tests := map[string]string{
		"20240305":   "2024-03-05",
		"2024-03-05": "2024-03-05",
		"2024":       "2024",
		"":           "",
	}
	for in, want := range tests {
		if got := DateInputValue(in); got != want {
			t.Errorf("DateInputValue(%q) = %q, want %q", in, got, want)
		}
	}
}

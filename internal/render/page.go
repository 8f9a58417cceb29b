package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/kjstillabower/pws-history-proxy/internal/validation"
)

//go:embed templates/*.html
var viewsFS embed.FS

var pageTmpl *template.Template

// HintConnectivity is appended to the status line when the upstream could not be reached.
const HintConnectivity = "¿Servidor caído? ¿URL/origen correcto? (usa la misma URL del backend) ¿HTTPS/CORS?"

// CSVDataURLPrefix starts the href of the page's CSV download link.
const CSVDataURLPrefix = "data:text/csv;charset=utf-8,"

// Status line texts.
const (
	StatusNoData = "Sin datos."
	statusOK     = "OK (%d registros)"
)

// loadTemplatesFromFS parses the page templates from dir inside fsys.
// Tests use it to simulate failures.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pageTmpl, err = template.ParseFS(sub, "*.html")
	return err
}

// LoadTemplates loads the embedded page templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// PageData is the view model of the history page.
type PageData struct {
	StationID string
	DateInput string // YYYY-MM-DD for the date input
	Units     string
	Status    string
	IsError   bool
	Table     *Table // nil when no table is shown
	CSVHref   template.URL
}

// NewPageData builds the form state for a query. date may be YYYYMMDD or YYYY-MM-DD.
func NewPageData(stationID, date, units string) *PageData {
	if units == "" {
		units = "m"
	}
	return &PageData{
		StationID: stationID,
		DateInput: DateInputValue(date),
		Units:     units,
	}
}

// SetTable shows t and the OK status, or the no-data status with no table when t is empty.
func (p *PageData) SetTable(t Table) {
	if t.Empty() {
		p.Table = nil
		p.Status = StatusNoData
		p.CSVHref = ""
		return
	}
	p.Table = &t
	p.Status = fmt.Sprintf(statusOK, len(t.Rows))
	p.CSVHref = csvDataURL(t)
}

// csvDataURL embeds the CSV of t in a data: URL, so the download holds exactly the
// rows on the page.
func csvDataURL(t Table) template.URL {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return ""
	}
	return template.URL(CSVDataURLPrefix + strings.ReplaceAll(url.QueryEscape(buf.String()), "+", "%20"))
}

// SetError shows an error status line, with the connectivity hint when hint is true.
func (p *PageData) SetError(message string, hint bool) {
	p.Table = nil
	p.CSVHref = ""
	p.IsError = true
	p.Status = "Error: " + message
	if hint {
		p.Status += " · " + HintConnectivity
	}
}

// RenderPage executes the history page into w.
func RenderPage(w io.Writer, data *PageData) error {
	if pageTmpl == nil {
		return errors.New("page template not loaded: call render.LoadTemplates during startup")
	}
	return pageTmpl.ExecuteTemplate(w, "history.html", data)
}

// DateInputValue turns YYYYMMDD into YYYY-MM-DD. Other values pass through.
func DateInputValue(date string) string {
	if validation.IsYYYYMMDD(date) {
		return date[:4] + "-" + date[4:6] + "-" + date[6:]
	}
	return date
}

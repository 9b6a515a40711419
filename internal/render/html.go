package render

import (
	"embed"
	"html/template"
	"io"
	"time"

	"untiswidget/internal/widget"
)

// Default widget canvas in px.
const (
	DefaultWidth  = 364
	DefaultHeight = 382
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// HTML renders the widget as a self-contained HTML page. The body carries
// data-ready="true" once rendered so headless capture can wait for it.
type HTML struct {
	Location *time.Location
	Width    int
	Height   int

	tmpl *template.Template
}

// NewHTML parses the embedded templates.
func NewHTML(loc *time.Location, width, height int) (*HTML, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &HTML{Location: loc, Width: width, Height: height, tmpl: tmpl}, nil
}

func (h *HTML) Widget(w io.Writer, res *widget.Result) error {
	p := buildPage(res, h.Location, h.Width, h.Height)
	return h.tmpl.ExecuteTemplate(w, "widget.html.tmpl", p)
}

func (h *HTML) Failure(w io.Writer, err error, now time.Time) error {
	p := page{
		Width:     h.Width,
		Height:    h.Height,
		FontSize:  MaxFontSize,
		Generated: now.In(h.Location).Format("Mon 02.01. 15:04"),
		Error:     err.Error(),
	}
	return h.tmpl.ExecuteTemplate(w, "widget.html.tmpl", p)
}

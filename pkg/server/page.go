package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/ccollicutt/sensortail/pkg/config"
)

//go:embed static/index.html
var staticFS embed.FS

type chartPage struct {
	tmpl *template.Template
	data chartData
}

type chartData struct {
	Title          string
	PollIntervalMS int64
	MaxPoints      int
	DataPath       string
}

func newChartPage(cfg config.ChartConfig) (*chartPage, error) {
	tmpl, err := template.ParseFS(staticFS, "static/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing chart page: %w", err)
	}
	return &chartPage{
		tmpl: tmpl,
		data: chartData{
			Title:          cfg.Title,
			PollIntervalMS: cfg.PollInterval.Std().Milliseconds(),
			MaxPoints:      cfg.MaxPoints,
			DataPath:       "/api/data",
		},
	}, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (p *chartPage) render(w io.Writer) error {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, p.data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

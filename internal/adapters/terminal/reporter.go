package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"ratings_dashboard/internal/app"
	"ratings_dashboard/internal/domain"
)

const (
	MsgNoData       = "No valid deduped CSV files found."
	MsgNoFlagColumn = "MgmtFlag column not found in your files. Re-export them with the management flag to use this report."
	MsgNoneFlagged  = "No reviews flagged for management."
)

type TableConfig struct {
	MonthWidth    int
	MinValueWidth int
	PathWidth     int
	StatusWidth   int
	CountWidth    int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		MonthWidth:    7,
		MinValueWidth: 6,
		PathWidth:     48,
		StatusWidth:   7,
		CountWidth:    7,
	}
}

// Reporter prints dashboard views as plain text tables.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) Message(msg string) error {
	_, err := fmt.Fprintln(c.writer, msg)
	return err
}

// ---- monthly grid ----

type grid struct {
	Widths []int
	Header []string
	Rows   [][]string
}

func (c *Reporter) monthlyGrid(s domain.MonthlySeries) grid {
	g := grid{
		Widths: []int{c.config.MonthWidth},
		Header: append([]string{"Month"}, s.Brands...),
	}
	for _, b := range s.Brands {
		g.Widths = append(g.Widths, max(len(b), c.config.MinValueWidth))
	}

	// points are brand-major; index them by (month, brand)
	cells := make(map[time.Time]map[string]string, len(s.Months))
	for _, p := range s.Points {
		if cells[p.Month] == nil {
			cells[p.Month] = make(map[string]string, len(s.Brands))
		}
		v := "-"
		if p.AverageRating != nil {
			v = fmt.Sprintf("%.2f", *p.AverageRating)
		}
		cells[p.Month][p.Brand] = v
	}
	for _, m := range s.Months {
		row := []string{m.Format("2006-01")}
		for _, b := range s.Brands {
			v, ok := cells[m][b]
			if !ok {
				v = "-"
			}
			row = append(row, v)
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

var gridFuncs = template.FuncMap{
	"formatRow": func(widths []int, cells []string) string {
		var b strings.Builder
		b.WriteString("|")
		for i, w := range widths {
			fmt.Fprintf(&b, " %-*s |", w, cells[i])
		}
		return b.String()
	},
	"separator": func(widths []int) string {
		var b strings.Builder
		b.WriteString("+")
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w+2))
			b.WriteString("+")
		}
		return b.String()
	},
}

const monthlyTmpl = `
Monthly average rating per brand ({{len .Rows}} months)

{{separator .Widths}}
{{formatRow .Widths .Header}}
{{separator .Widths}}
{{range .Rows}}{{formatRow $.Widths .}}
{{end}}{{separator .Widths}}
`

// Monthly prints the dense series as a month by brand table; absent values print as "-".
func (c *Reporter) Monthly(s domain.MonthlySeries) error {
	return c.execute("monthly", monthlyTmpl, c.monthlyGrid(s))
}

// ---- flagged ----

const flaggedTmpl = `
Reviews flagged for management
Showing {{len .Items}} flagged review(s) from {{day .From}} to {{day .To}}:
{{range .Items}}
** {{.Brand}} **
Date:   {{day .Date}}
Rating: {{printf "%g" .Rating}}
Title:  {{title .}}
Review: {{excerpt .Body}}
---
{{end}}`

func (c *Reporter) Flagged(p domain.FlaggedPage) error {
	if len(p.Items) == 0 && p.Min.IsZero() {
		return c.Message(MsgNoneFlagged)
	}
	funcs := template.FuncMap{
		"day":     func(t time.Time) string { return t.Format(time.DateOnly) },
		"title":   app.DisplayTitle,
		"excerpt": func(s string) string { return app.Excerpt(s, app.ExcerptRunes) },
	}
	return c.execute("flagged", flaggedTmpl, p, funcs)
}

// ---- files ----

const filesTmpl = `
{{len .Reviews}} rows from {{len .Files}} file(s)

{{separator .Widths}}
{{formatRow .Widths .Header}}
{{separator .Widths}}
{{range .Rows}}{{formatRow $.Widths .}}
{{end}}{{separator .Widths}}
{{range .Files}}{{if .Reason}}{{.Path}}: {{.Reason}}
{{end}}{{end}}`

// Files prints the per-file outcome of the last load.
func (c *Reporter) Files(ds domain.Dataset) error {
	g := grid{
		Widths: []int{c.config.PathWidth, c.config.StatusWidth, c.config.CountWidth, c.config.CountWidth},
		Header: []string{"File", "Status", "Kept", "Dropped"},
	}
	for _, f := range ds.Files {
		g.Rows = append(g.Rows, []string{
			shorten(f.Path, c.config.PathWidth),
			string(f.Status),
			fmt.Sprint(f.Kept),
			fmt.Sprint(f.Dropped),
		})
	}
	view := struct {
		Widths  []int
		Header  []string
		Rows    [][]string
		Reviews []domain.Review
		Files   []domain.FileOutcome
	}{g.Widths, g.Header, g.Rows, ds.Reviews, ds.Files}
	return c.execute("files", filesTmpl, view)
}

// shorten keeps the tail of long paths, where the file name is.
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}

func (c *Reporter) execute(name, tmpl string, data any, extra ...template.FuncMap) error {
	t := template.New(name).Funcs(gridFuncs)
	for _, f := range extra {
		t = t.Funcs(f)
	}
	t, err := t.Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}

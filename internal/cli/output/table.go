package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders rows under header: a box table on a terminal, a markdown
// table otherwise. JSON callers encode their own data instead.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}
	t.SetStyle(table.StyleLight)
	r.Println(t.Render())
}

package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/murphyslaws/murphys-laws/internal/core"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func categoriesTable(rows []CategoryRow) string {
	t := newTable()
	t.AppendHeader(table.Row{"Category", "Max", "Window"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Category, row.Max, row.Window})
	}
	return t.Render()
}

func routesTable(rows []RouteRow) string {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Method", "Path"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Order, row.Method, row.Path})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d routes", len(rows))})
	return t.Render()
}

func lawTable(law *core.Law) string {
	t := newTable()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"ID", law.ID})
	if title := law.DisplayTitle(); title != "" {
		t.AppendRow(table.Row{"Title", title})
	}
	t.AppendRow(table.Row{"Text", law.Text})

	names := make([]string, 0, len(law.Attributions))
	for _, a := range law.Attributions {
		names = append(names, a.Name)
	}
	if len(names) > 0 {
		t.AppendRow(table.Row{"Attributed to", strings.Join(names, ", ")})
	}
	t.AppendRow(table.Row{"Votes", fmt.Sprintf("+%d / -%d", law.Upvotes, law.Downvotes)})
	return t.Render()
}

// Package output renders CLI listings as tables, JSON or YAML.
package output

import (
	"fmt"
	"strings"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
	"github.com/murphyslaws/murphys-laws/internal/server/router"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Extension is the file extension used when writing format to disk.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}

// CategoryRow is one rate limit category as listed by the CLI.
type CategoryRow struct {
	Category      string `json:"category" yaml:"category"`
	Max           int    `json:"max" yaml:"max"`
	Window        string `json:"window" yaml:"window"`
	WindowSeconds int64  `json:"window_seconds" yaml:"window_seconds"`
}

// RouteRow is one registered API route.
type RouteRow struct {
	Order  int    `json:"order" yaml:"order"`
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

// CategoryRows converts limiter categories into listing rows.
func CategoryRows(infos []ratelimit.CategoryInfo) []CategoryRow {
	rows := make([]CategoryRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, CategoryRow{
			Category:      string(info.Category),
			Max:           info.Max,
			Window:        info.Window.String(),
			WindowSeconds: int64(info.Window.Seconds()),
		})
	}
	return rows
}

// RouteRows converts router entries into listing rows, keeping match order.
func RouteRows(routes []router.Route) []RouteRow {
	rows := make([]RouteRow, 0, len(routes))
	for i, route := range routes {
		rows = append(rows, RouteRow{
			Order:  i + 1,
			Method: string(route.Method),
			Path:   route.OriginalPath,
		})
	}
	return rows
}

// Categories renders the rate limit category table.
func Categories(format Format, rows []CategoryRow) (string, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(rows)
	case FormatYAML:
		return encodeYAML(rows)
	default:
		return categoriesTable(rows), nil
	}
}

// Routes renders the API route listing.
func Routes(format Format, rows []RouteRow) (string, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(rows)
	case FormatYAML:
		return encodeYAML(rows)
	default:
		return routesTable(rows), nil
	}
}

// Law renders a single law. A nil law renders as an empty string.
func Law(format Format, law *core.Law) (string, error) {
	if law == nil {
		return "", nil
	}
	switch format {
	case FormatJSON:
		return encodeJSON(law)
	case FormatYAML:
		return encodeYAML(law)
	default:
		return lawTable(law), nil
	}
}

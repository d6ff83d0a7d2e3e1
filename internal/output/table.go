package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"datamerge/internal/join"
)

// Preview renders up to limit records as an aligned terminal table. limit <=
// 0 shows everything. A truncation note follows when rows were cut.
func Preview(w io.Writer, header []string, records []join.Record, limit int) {
	if len(header) == 0 || len(records) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	shown := records
	if limit > 0 && len(records) > limit {
		shown = records[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, rec := range shown {
		line := make([]string, len(header))
		for i, col := range header {
			line[i] = formatValue(rec[col])
		}
		table.Append(line)
	}
	table.Render()

	if len(shown) < len(records) {
		fmt.Fprintf(w, "... %d of %d rows shown\n", len(shown), len(records))
	}
}

// Package htmltable extracts an HTML <table> into a dataset.
package htmltable

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"datamerge/internal/config"
	"datamerge/internal/dataset"
)

// Read parses HTML from r and extracts one table as a Dataset named name.
//
// Options:
//   - table_index (int, default 0): which <table> in DOM order to read.
//   - selector (string): CSS selector overriding table_index entirely.
//
// Header cells come from the table's first row (<th> preferred, <td>
// accepted); every following row with at least one non-empty cell becomes a
// dataset row. Cells are whitespace-collapsed text; empty cells are treated
// as missing. Rows wider than the header are cut at the header width.
func Read(r io.Reader, name string, opt config.Options) (dataset.Dataset, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("html %s: parse: %w", name, err)
	}

	sel := opt.String("selector", "table")
	index := opt.Int("table_index", 0)

	table := doc.Find(sel).Eq(index)
	if table.Length() == 0 {
		return dataset.Dataset{}, fmt.Errorf("html %s: no table matches %q[%d]", name, sel, index)
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return dataset.Dataset{Name: name}, nil
	}

	ds := dataset.Dataset{Name: name}
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := cellTexts(tr)
		if i == 0 {
			ds.Columns = cells
			return true
		}
		if len(cells) == 0 {
			return true
		}
		row := make(dataset.Row, len(cells))
		empty := true
		for j, cell := range cells {
			if j >= len(ds.Columns) {
				break
			}
			if cell == "" {
				continue
			}
			row[ds.Columns[j]] = cell
			empty = false
		}
		if !empty {
			ds.Rows = append(ds.Rows, row)
		}
		return true
	})

	return ds, nil
}

// cellTexts collects the trimmed text of a row's th/td cells in DOM order.
func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, collapseSpace(cell.Text()))
	})
	return out
}

// collapseSpace trims and folds internal whitespace runs to single spaces,
// which scraped markup needs constantly.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

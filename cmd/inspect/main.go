// Command inspect profiles tabular files and reports join-key candidates.
//
// It is intended for quickly bootstrapping merge job configs from real input
// data: point it at two or more files, read the column profiles and the
// ranked candidates, then copy the winning mapping into a job file.
//
// Output modes:
//
//   - Default: a per-dataset column profile plus the candidate ranking.
//   - -json: the top candidate as a join section ready to paste into a job
//     config.
//   - -rows N: additionally previews the first N rows of each dataset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"

	"datamerge/internal/assist"
	"datamerge/internal/config"
	"datamerge/internal/dataset"
	"datamerge/internal/ingest"
	"datamerge/internal/join"
	"datamerge/internal/profile"
)

func main() {
	asJSON := flag.Bool("json", false, "print the top candidate as a join config section")
	rows := flag.Int("rows", 0, "preview the first N rows of each dataset")
	flag.Parse()

	paths := flag.Args()
	if len(paths) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-json] [-rows N] file1 file2 [file3 ...]")
		os.Exit(2)
	}

	sources := make([]config.Source, len(paths))
	for i, p := range paths {
		sources[i] = config.Source{Path: p}
	}

	datasets, err := ingest.LoadAll(sources)
	if err != nil {
		fatalf("%v", err)
	}

	summaries := profile.DescribeAll(datasets)
	cands, err := assist.Heuristic{}.ProposeCandidates(context.Background(), summaries)
	if err != nil {
		fatalf("propose candidates: %v", err)
	}

	if *asJSON {
		printJoinSection(cands)
		return
	}

	for i, s := range summaries {
		printProfile(s)
		if *rows > 0 {
			printRows(datasets[i], *rows)
		}
	}
	printCandidates(cands)
}

func printProfile(s profile.Summary) {
	fmt.Printf("%s (%d rows)\n", s.Dataset, s.RowCount)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Column", "Kind", "Non-null", "Distinct", "Uniqueness", "Samples"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, c := range s.Columns {
		distinct := fmt.Sprintf("%d", c.Distinct)
		if c.Capped {
			distinct += "+"
		}
		table.Append([]string{
			c.Name,
			c.Kind,
			fmt.Sprintf("%d", c.NonNull),
			distinct,
			fmt.Sprintf("%.2f", c.Uniqueness),
			fmt.Sprint(c.Samples),
		})
	}
	table.Render()
	fmt.Println()
}

func printRows(ds dataset.Dataset, n int) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(ds.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for i, row := range ds.Rows {
		if i >= n {
			break
		}
		line := make([]string, len(ds.Columns))
		for j, col := range ds.Columns {
			if v, ok := row[col]; ok && v != nil {
				line[j] = fmt.Sprint(join.Sanitize(v))
			}
		}
		table.Append(line)
	}
	table.Render()
	fmt.Println()
}

func printCandidates(cands []dataset.Candidate) {
	if len(cands) == 0 {
		fmt.Println("no join key candidates found")
		return
	}
	fmt.Println("join key candidates:")
	for i, c := range cands {
		fmt.Printf("%d. %q (confidence %.2f)\n", i+1, c.KeyName, c.Confidence)
		for ds, col := range c.ColumnMappings {
			fmt.Printf("     %s -> %s\n", ds, col)
		}
		for _, issue := range c.Issues {
			fmt.Printf("     note: %s\n", issue)
		}
		if i == 0 && c.Reasoning != "" {
			fmt.Printf("     %s\n", c.Reasoning)
		}
	}
}

func printJoinSection(cands []dataset.Candidate) {
	if len(cands) == 0 {
		fatalf("no join key candidates found")
	}
	top := cands[0]
	section := config.Join{
		Type:     "inner",
		KeyName:  top.KeyName,
		Mappings: top.ColumnMappings,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]config.Join{"join": section}); err != nil {
		fatalf("encode: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

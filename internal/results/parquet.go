package results

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

// writeParquet stores every column as an optional UTF-8 string.
func writeParquet(w io.Writer, result query.Result) error {
	names := uniqueColumnNames(result.Columns)
	group := parquet.Group{}
	for _, name := range names {
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("query_result", group)

	// Group fields are ordered by name; map each leaf back to its source column.
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}
	fields := schema.Fields()
	sources := make([]int, len(fields))
	for i, field := range fields {
		sources[i] = position[field.Name()]
	}

	writer := parquet.NewWriter(w, schema)
	rows := make([]parquet.Row, 0, len(result.Rows))
	for _, values := range result.Rows {
		row := make(parquet.Row, len(fields))
		for leaf, src := range sources {
			var value any
			if src < len(values) {
				value = values[src]
			}
			if value == nil {
				row[leaf] = parquet.NullValue().Level(0, 0, leaf)
				continue
			}
			row[leaf] = parquet.ValueOf(FormatValue(value)).Level(0, 1, leaf)
		}
		rows = append(rows, row)
	}
	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func uniqueColumnNames(columns []string) []string {
	seen := make(map[string]int, len(columns))
	names := make([]string, len(columns))
	for i, column := range columns {
		name := strings.TrimSpace(column)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
			seen[name]++
		}
		names[i] = name
	}
	return names
}

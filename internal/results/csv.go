package results

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

func writeCSV(w io.Writer, result query.Result) error {
	buffered := bufio.NewWriter(w)
	writer := csv.NewWriter(buffered)
	if err := writer.Write(result.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatValue(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return buffered.Flush()
}

package results

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

// Summarize renders a bounded markdown preview of result. Results with more
// than maxRows rows show the first and last maxRows rows; columns beyond
// maxColumns are dropped.
func Summarize(result query.Result, maxRows, maxColumns int) string {
	columns := result.Columns
	if maxColumns > 0 && len(columns) > maxColumns {
		columns = columns[:maxColumns]
	}
	if len(columns) == 0 {
		return ""
	}

	rows := result.Rows
	if maxRows > 0 && len(rows) > maxRows {
		preview := make([][]any, 0, 2*maxRows)
		preview = append(preview, rows[:maxRows]...)
		preview = append(preview, rows[len(rows)-maxRows:]...)
		rows = preview
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(columns))
	numeric := make([]bool, len(columns))
	for i, name := range columns {
		widths[i] = utf8.RuneCountInString(name)
		numeric[i] = len(rows) > 0
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for c := range columns {
			var value any
			if c < len(row) {
				value = row[c]
			}
			if value != nil && !isNumber(value) {
				numeric[c] = false
			}
			text := previewValue(value)
			cells[r][c] = text
			if n := utf8.RuneCountInString(text); n > widths[c] {
				widths[c] = n
			}
		}
	}

	var b strings.Builder
	writeRow(&b, columns, widths, numeric)
	b.WriteString("|")
	for c, width := range widths {
		if numeric[c] {
			b.WriteString(strings.Repeat("-", width+1) + ":|")
		} else {
			b.WriteString(":" + strings.Repeat("-", width+1) + "|")
		}
	}
	for _, row := range cells {
		b.WriteString("\n")
		writeRow(&b, row, widths, numeric)
	}
	return b.String()
}

// WrapPreview fences a markdown table for chat display.
func WrapPreview(table string) string {
	return "```\n" + table + "\n```"
}

func writeRow(b *strings.Builder, values []string, widths []int, rightAlign []bool) {
	b.WriteString("|")
	for i, value := range values {
		pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(value))
		if rightAlign[i] {
			b.WriteString(" " + pad + value + " |")
		} else {
			b.WriteString(" " + value + pad + " |")
		}
	}
}

func previewValue(value any) string {
	if value == nil {
		return "NULL"
	}
	text := strings.ReplaceAll(FormatValue(value), "|", `\|`)
	return strings.ReplaceAll(text, "\n", " ")
}

// FormatValue is the text form of a scanned value in previews and files.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

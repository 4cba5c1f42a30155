package results

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

// writeJSONL writes one JSON object per row. Keys follow column order.
func writeJSONL(w io.Writer, result query.Result) error {
	buffered := bufio.NewWriter(w)
	keys := make([][]byte, len(result.Columns))
	for i, column := range result.Columns {
		encoded, err := json.Marshal(column)
		if err != nil {
			return fmt.Errorf("encode jsonl key: %w", err)
		}
		keys[i] = encoded
	}
	for _, row := range result.Rows {
		buffered.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buffered.WriteByte(',')
			}
			var value any
			if i < len(row) {
				value = row[i]
			}
			encoded, err := json.Marshal(jsonValue(value))
			if err != nil {
				return fmt.Errorf("encode jsonl value for %s: %w", result.Columns[i], err)
			}
			buffered.Write(key)
			buffered.WriteByte(':')
			buffered.Write(encoded)
		}
		buffered.WriteString("}\n")
	}
	return buffered.Flush()
}

func jsonValue(value any) any {
	switch typed := value.(type) {
	case nil, bool, string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.Format(time.RFC3339)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return FormatValue(typed)
		}
		return typed
	default:
		if isNumber(typed) {
			return typed
		}
		return FormatValue(typed)
	}
}

package results

import (
	"strings"
	"testing"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/query"
)

func TestSummarizeSmallResult(t *testing.T) {
	got := Summarize(query.Result{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "Ana"}, {int64(20), nil}},
	}, 5, 5)
	want := "| id | name |\n" +
		"|---:|:-----|\n" +
		"|  1 | Ana  |\n" +
		"| 20 | NULL |"
	if got != want {
		t.Fatalf("Summarize() =\n%s\nwant\n%s", got, want)
	}
}

func TestSummarizeHeadAndTail(t *testing.T) {
	rows := make([][]any, 0, 12)
	for i := 1; i <= 12; i++ {
		rows = append(rows, []any{int64(i)})
	}
	got := Summarize(query.Result{Columns: []string{"n"}, Rows: rows}, 5, 5)
	lines := strings.Split(got, "\n")
	if len(lines) != 12 {
		t.Fatalf("lines = %d\n%s", len(lines), got)
	}
	if strings.TrimSpace(lines[2]) != "|  1 |" || strings.TrimSpace(lines[11]) != "| 12 |" {
		t.Fatalf("Summarize() =\n%s", got)
	}
	if strings.Contains(got, "|  6 |") || strings.Contains(got, "|  7 |") {
		t.Fatalf("middle rows should be omitted:\n%s", got)
	}
}

func TestSummarizeTruncatesColumns(t *testing.T) {
	got := Summarize(query.Result{
		Columns: []string{"a", "b", "c", "d", "e", "f", "g"},
		Rows:    [][]any{{"1", "2", "3", "4", "5", "6", "7"}},
	}, 5, 5)
	header := strings.Split(got, "\n")[0]
	if strings.Contains(header, "f") || !strings.Contains(header, "e") {
		t.Fatalf("header = %q", header)
	}
}

func TestSummarizeZeroRows(t *testing.T) {
	got := Summarize(query.Result{Columns: []string{"a"}}, 5, 5)
	if got != "| a |\n|:--|" {
		t.Fatalf("Summarize() = %q", got)
	}
	if Summarize(query.Result{}, 5, 5) != "" {
		t.Fatal("expected empty preview without columns")
	}
}

func TestSummarizeEscapesPipes(t *testing.T) {
	got := Summarize(query.Result{Columns: []string{"v"}, Rows: [][]any{{"a|b\nc"}}}, 5, 5)
	if !strings.Contains(got, `a\|b c`) {
		t.Fatalf("Summarize() = %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{[]byte("x"), "x"},
		{ts, "2026-03-01T10:00:00Z"},
		{1.5, "1.5"},
		{int64(42), "42"},
		{true, "true"},
		{int32(7), "7"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); got != tc.want {
			t.Fatalf("FormatValue(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWrapPreview(t *testing.T) {
	if got := WrapPreview("| a |"); got != "```\n| a |\n```" {
		t.Fatalf("WrapPreview() = %q", got)
	}
}

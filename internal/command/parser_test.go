package command

import (
	"testing"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser("sqloslav", "postgres")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	return p
}

func TestParseDirectSQLMultiline(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sql, vertica\nSELECT *\nFROM orders")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Backend != "VERTICA" || !cmd.ExplicitBackend {
		t.Fatalf("Backend = %q explicit=%v", cmd.Backend, cmd.ExplicitBackend)
	}
	if cmd.Payload != "SELECT *\nFROM orders" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
	if cmd.Debug {
		t.Fatal("direct SQL is never debug")
	}
}

func TestParseDirectSQLSingleLine(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sql, vertica SELECT 1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Backend != "VERTICA" || cmd.Payload != "SELECT 1" {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestParseDirectSQLStripsFencesAndBacktickedBackend(t *testing.T) {
	cmd, err := newTestParser(t).Parse("SQL, `virga_test`\n```sql\nSELECT name FROM dual\n```")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Backend != "VIRGA_TEST" {
		t.Fatalf("Backend = %q", cmd.Backend)
	}
	if cmd.Payload != "SELECT name FROM dual" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
}

func TestParseDirectSQLInlineBackticks(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sql, postgres\n`SELECT 1 FROM t`")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Payload != "SELECT 1 FROM t" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
}

func TestParseDirectSQLKeepsInnerBackticks(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sql, duckdb\nSELECT `a` FROM t")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Payload != "SELECT `a` FROM t" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
}

func TestParseDirectSQLRejectsMissingBackend(t *testing.T) {
	_, err := newTestParser(t).Parse("sql,\nSELECT 1")
	if err == nil {
		t.Fatal("expected format error")
	}
	if !apperr.Is(err, apperr.KindFormat) {
		t.Fatalf("kind = %q", apperr.KindOf(err))
	}
}

func TestParseDebugMode(t *testing.T) {
	cmd, err := newTestParser(t).Parse("SQLoslav, DEBUG How Many Orders?")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !cmd.Debug {
		t.Fatal("expected debug mode")
	}
	if cmd.Payload != "How Many Orders?" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
	if cmd.Backend != "POSTGRES" || cmd.ExplicitBackend {
		t.Fatalf("Backend = %q explicit=%v", cmd.Backend, cmd.ExplicitBackend)
	}
}

func TestParseTriggerOnly(t *testing.T) {
	for _, text := range []string{"sqloslav", "SQLOSLAV  ", "SqLoSlAv\t"} {
		cmd, err := newTestParser(t).Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", text, err)
		}
		if cmd.Payload != "" || cmd.Debug || !cmd.IsHelp() {
			t.Fatalf("Parse(%q) = %+v", text, cmd)
		}
	}
}

func TestParseTriggerWithQuestion(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sqloslav How many orders were placed last month?")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Payload != "How many orders were placed last month?" || cmd.Debug {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestParseTriggerMustBeWholeWord(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sqloslavian greetings")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Payload != "sqloslavian greetings" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
}

func TestParseDebugWordPrefixIsNotDebug(t *testing.T) {
	cmd, err := newTestParser(t).Parse("sqloslav, debugging tips please")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Debug || cmd.Payload != "debugging tips please" {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestParseFallbackVerbatim(t *testing.T) {
	cmd, err := newTestParser(t).Parse("What are the top 5 products by price?")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Payload != "What are the top 5 products by price?" || cmd.Backend != "POSTGRES" {
		t.Fatalf("cmd = %+v", cmd)
	}
}

func TestParseStripsMentionAndUnescapesEntities(t *testing.T) {
	cmd, err := newTestParser(t).Parse("<@U024BE7LH> sqloslav SELECT a FROM t WHERE b &lt; 3 &amp;&amp; c &gt; 1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cmd.Payload != "SELECT a FROM t WHERE b < 3 && c > 1" {
		t.Fatalf("Payload = %q", cmd.Payload)
	}
}

func TestNewParserRequiresTrigger(t *testing.T) {
	if _, err := NewParser(" ", "POSTGRES"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewParser("sqloslav", ""); err == nil {
		t.Fatal("expected error")
	}
}

package sqlguard

import (
	"strings"
	"testing"
)

func TestValidateAcceptsSimpleSelect(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM t",
		"select a, count(*) from t group by a;",
		"  SELECT (a + b) AS s FROM t WHERE c IN (1, 2)  ",
	} {
		verdict := Validate(sql)
		if !verdict.Valid || len(verdict.Issues) != 0 {
			t.Fatalf("Validate(%q) = %+v", sql, verdict)
		}
	}
}

func TestValidateEmpty(t *testing.T) {
	for _, sql := range []string{"", "   \n\t"} {
		verdict := Validate(sql)
		if verdict.Valid || len(verdict.Issues) != 1 || verdict.Issues[0] != IssueEmpty {
			t.Fatalf("Validate(%q) = %+v", sql, verdict)
		}
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	for _, sql := range []string{"UPDATE t SET x=1", "WITH a AS (SELECT 1) SELECT * FROM a", "DELETE FROM t"} {
		verdict := Validate(sql)
		if verdict.Valid {
			t.Fatalf("Validate(%q) should be invalid", sql)
		}
		if verdict.Issues[0] != IssueNotSelect {
			t.Fatalf("Validate(%q) issues = %v", sql, verdict.Issues)
		}
	}
}

func TestValidateRejectsStackedDrop(t *testing.T) {
	verdict := Validate("SELECT * FROM t; DROP TABLE t")
	if verdict.Valid {
		t.Fatal("expected invalid verdict")
	}
	if !strings.Contains(verdict.Issues[0], "DROP") {
		t.Fatalf("issue = %q", verdict.Issues[0])
	}
}

func TestValidateRejectsCommentMarkers(t *testing.T) {
	for _, sql := range []string{"SELECT * FROM t -- trailing", "SELECT /* hint */ * FROM t"} {
		verdict := Validate(sql)
		if verdict.Valid {
			t.Fatalf("Validate(%q) should be invalid", sql)
		}
		if !strings.HasPrefix(verdict.Issues[0], "potentially dangerous operation detected") {
			t.Fatalf("issue = %q", verdict.Issues[0])
		}
	}
}

func TestValidateIgnoresKeywordsInsideIdentifiers(t *testing.T) {
	verdict := Validate("SELECT last_update, dropped_at FROM t")
	if !verdict.Valid {
		t.Fatalf("Validate() = %+v", verdict)
	}
}

func TestValidateSyntaxChecks(t *testing.T) {
	for _, sql := range []string{
		"SELECT count(* FROM t",
		"SELECT 1",
		"SELECT * FROM t; SELECT * FROM u;",
		"SELECT * FROM t; ",
	} {
		verdict := Validate(sql)
		if sql == "SELECT * FROM t; " {
			if !verdict.Valid {
				t.Fatalf("Validate(%q) trailing semicolon should pass: %+v", sql, verdict)
			}
			continue
		}
		if verdict.Valid || verdict.Issues[0] != IssueSyntax {
			t.Fatalf("Validate(%q) = %+v", sql, verdict)
		}
	}
}

func TestValidateSemicolonMustBeLast(t *testing.T) {
	verdict := Validate("SELECT * FROM t; SELECT 2 FROM u")
	if verdict.Valid || verdict.Issues[0] != IssueSyntax {
		t.Fatalf("Validate() = %+v", verdict)
	}
}

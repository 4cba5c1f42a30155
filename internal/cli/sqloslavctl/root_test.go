package sqloslavctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"github.com/IvanVatroslav/SQLoslav/internal/command"
)

func TestRunHealthCommand(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "--api-key", "k1", "health"}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodGet || gotPath != "/v1/health" || gotAPIKey != "k1" {
		t.Fatalf("request = %s %s key=%q", gotMethod, gotPath, gotAPIKey)
	}
	if !strings.Contains(stdout.String(), `"status": "ok"`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunValidateSendsSQL(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"is_valid":true,"issues":[]}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "validate", "SELECT", "*", "FROM", "t"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if body["sql"] != "SELECT * FROM t" {
		t.Fatalf("body = %v", body)
	}
}

func TestRunTranslateWithSchema(t *testing.T) {
	var gotPath string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"sql":"SELECT 1 FROM t"}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "translate", "--schema", "star_dwh", "how many stores?"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPath != "/v1/translate" || body["question"] != "how many stores?" || body["schema"] != "star_dwh" {
		t.Fatalf("path = %s body = %v", gotPath, body)
	}
}

func TestRunRetentionCommand(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"completed"}`))
	}))
	defer srv.Close()

	code := Run(context.Background(), []string{"--base-url", srv.URL, "retention-run"}, Options{})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/retention/run" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}

func TestRunReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"FORBIDDEN"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "retention-run"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "http 403") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"unknown"}, Options{Stderr: &stderr})
	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	if stderr.Len() == 0 {
		t.Fatal("expected error output")
	}
}

func TestInspectMessage(t *testing.T) {
	parser, err := command.NewParser("sqloslav", "POSTGRES")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	table, err := inspectMessage(parser, "sql, vertica\nSELECT * FROM t; DROP TABLE t")
	if err != nil {
		t.Fatalf("inspectMessage() error = %v", err)
	}
	last := table[len(table)-1]
	if last[0] != "validation" || !strings.Contains(last[1], "DROP") {
		t.Fatalf("last row = %v", last)
	}
	if table[1][1] != "VERTICA" {
		t.Fatalf("backend row = %v", table[1])
	}

	table, err = inspectMessage(parser, "sqloslav what were sales in 2023?")
	if err != nil {
		t.Fatalf("inspectMessage() error = %v", err)
	}
	if last := table[len(table)-1]; last[1] != "natural language" {
		t.Fatalf("last row = %v", last)
	}
}

func TestRunInspectRendersTable(t *testing.T) {
	pterm.DisableColor()
	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"inspect", "sqloslav"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "help") || !strings.Contains(stdout.String(), "POSTGRES") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

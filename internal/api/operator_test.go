package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/auth"
	"github.com/IvanVatroslav/SQLoslav/internal/command"
	"github.com/IvanVatroslav/SQLoslav/internal/nl2sql"
	"github.com/IvanVatroslav/SQLoslav/internal/retention"
)

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rr
}

func TestParseEndpoint(t *testing.T) {
	parser, err := command.NewParser("sqloslav", "postgres")
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	h := NewHandler(loadConfig(t, nil), Dependencies{Parser: parser})

	rr := post(h, "/v1/parse", `{"text":"sqloslav, debug How many orders?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var got parseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Debug || got.Backend != "POSTGRES" || got.Payload != "How many orders?" || !got.NaturalLanguage {
		t.Fatalf("got = %+v", got)
	}

	rr = post(h, "/v1/parse", `{"text":"sql, 1x\nSELECT 1"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{})

	rr := post(h, "/v1/validate", `{"sql":"UPDATE t SET x=1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"is_valid":false`) || !strings.Contains(rr.Body.String(), "only SELECT queries are allowed") {
		t.Fatalf("body = %s", rr.Body.String())
	}

	rr = post(h, "/v1/validate", `{"query":"x"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rr.Code)
	}
}

type stubTranslator struct {
	result nl2sql.Result
	err    error
	got    nl2sql.Request
}

func (s *stubTranslator) Translate(_ context.Context, req nl2sql.Request) (nl2sql.Result, error) {
	s.got = req
	return s.result, s.err
}

func TestTranslateEndpoint(t *testing.T) {
	translator := &stubTranslator{result: nl2sql.Result{SQL: "SELECT * FROM DimStore", Provider: "mistral", Model: "m", Schema: "star_dwh", Extraction: nl2sql.ExtractionStructured}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Translator: translator, Schema: "star_dwh"})

	rr := post(h, "/v1/translate", `{"question":"list stores"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var got struct {
		SQL     string `json:"sql"`
		Verdict struct {
			Valid bool `json:"is_valid"`
		} `json:"verdict"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SQL != "SELECT * FROM DimStore" || !got.Verdict.Valid {
		t.Fatalf("got = %+v", got)
	}
	if translator.got.Schema != "star_dwh" {
		t.Fatalf("schema = %q", translator.got.Schema)
	}
}

func TestTranslateEndpointFailure(t *testing.T) {
	translator := &stubTranslator{err: apperr.Wrap(apperr.KindGeneration, "Failed to generate SQL query", errors.New("status 500"))}
	h := NewHandler(loadConfig(t, nil), Dependencies{Translator: translator})

	rr := post(h, "/v1/translate", `{"question":"list stores"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	rr = post(h, "/v1/translate", `{"question":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty question status = %d", rr.Code)
	}
}

type stubRetention struct {
	summary retention.Summary
	err     error
	calls   int
}

func (s *stubRetention) RunOnce(context.Context) (retention.Summary, error) {
	s.calls++
	return s.summary, s.err
}

func TestRetentionRunEndpoint(t *testing.T) {
	runner := &stubRetention{summary: retention.Summary{LocalFilesDeleted: 3}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Retention: runner})

	rr := post(h, "/v1/retention/run", "")
	if rr.Code != http.StatusOK || runner.calls != 1 {
		t.Fatalf("status = %d calls = %d", rr.Code, runner.calls)
	}
	if !strings.Contains(rr.Body.String(), `"local_files_deleted":3`) {
		t.Fatalf("body = %s", rr.Body.String())
	}

	runner.err = errors.New("read output: permission denied")
	rr = post(h, "/v1/retention/run", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRetentionRunNeedsOperatorRole(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"SQLOSLAV_AUTH_REQUIRED": "true"})
	keys, _ := auth.ParseStaticKeys("k1:dash:viewer")
	runner := &stubRetention{}
	h := NewHandler(cfg, Dependencies{AuthMiddleware: auth.Middleware(nil, keys), Retention: runner})

	req := httptest.NewRequest(http.MethodPost, "/v1/retention/run", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden || runner.calls != 0 {
		t.Fatalf("status = %d calls = %d", rr.Code, runner.calls)
	}
}

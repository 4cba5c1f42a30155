package api

import (
	"net/http"
	"strings"

	"github.com/IvanVatroslav/SQLoslav/internal/apperr"
	"github.com/IvanVatroslav/SQLoslav/internal/classify"
	"github.com/IvanVatroslav/SQLoslav/internal/nl2sql"
	"github.com/IvanVatroslav/SQLoslav/internal/sqlguard"
)

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Backend         string `json:"backend"`
	Payload         string `json:"payload"`
	Debug           bool   `json:"debug"`
	ExplicitBackend bool   `json:"explicit_backend"`
	Help            bool   `json:"help"`
	NaturalLanguage bool   `json:"natural_language"`
}

type validateRequest struct {
	SQL string `json:"sql"`
}

type translateRequest struct {
	Question string `json:"question"`
	Schema   string `json:"schema,omitempty"`
}

type translateResponse struct {
	nl2sql.Result
	Verdict sqlguard.Verdict `json:"verdict"`
}

func handleParse(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Parser == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PARSER_NOT_CONFIGURED", "message parser is not configured", false, nil)
		return
	}
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cmd, err := deps.Parser.Parse(req.Text)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "FORMAT_ERROR", err.Error(), false, nil)
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Backend:         cmd.Backend,
		Payload:         cmd.Payload,
		Debug:           cmd.Debug,
		ExplicitBackend: cmd.ExplicitBackend,
		Help:            cmd.IsHelp(),
		NaturalLanguage: !cmd.ExplicitBackend && classify.IsNaturalLanguage(cmd.Payload),
	})
}

func handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, sqlguard.Validate(req.SQL))
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TRANSLATOR_NOT_CONFIGURED", "query translator is not configured", false, nil)
		return
	}
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	if req.Schema == "" {
		req.Schema = deps.Schema
	}

	result, err := deps.Translator.Translate(r.Context(), nl2sql.Request{Question: req.Question, Schema: req.Schema})
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_FAILED", err.Error(), true, map[string]any{"kind": string(apperr.KindOf(err))})
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Result: result, Verdict: sqlguard.Validate(result.SQL)})
}

func handleRetentionRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Retention == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RETENTION_NOT_CONFIGURED", "retention job is not configured", false, nil)
		return
	}
	summary, err := deps.Retention.RunOnce(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "RETENTION_FAILED", "retention run failed", true, map[string]any{
			"details": err.Error(),
			"summary": summary,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"summary": summary,
	})
}

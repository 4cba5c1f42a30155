// Package sqloslavctl is the operator CLI for a running SQLoslav service.
package sqloslavctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// exitError carries the process exit code out of a cobra RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

type remote struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// Run executes one CLI invocation and returns the exit code: 0 on success, 1
// when the request fails, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := NewRootCommand(defaults)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(stderr, err)
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 2
}

func NewRootCommand(defaults Options) *cobra.Command {
	r := &remote{client: defaults.HTTPClient}

	root := &cobra.Command{
		Use:           "sqloslavctl",
		Short:         "Operate a SQLoslav Slack bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&r.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "SQLoslav API base URL")
	root.PersistentFlags().StringVar(&r.apiKey, "api-key", defaults.APIKey, "API key for operator endpoints")
	root.PersistentFlags().DurationVar(&r.timeout, "timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")

	root.AddCommand(
		r.simpleCommand("health", "Check liveness", http.MethodGet, "/v1/health"),
		r.simpleCommand("ready", "Check readiness of configured dependencies", http.MethodGet, "/v1/ready"),
		r.simpleCommand("retention-run", "Run one retention cycle now", http.MethodPost, "/v1/retention/run"),
		r.validateCommand(),
		r.translateCommand(),
		r.parseCommand(),
		newInspectCommand(),
	)
	return root
}

func (r *remote) simpleCommand(use, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.call(cmd, method, path, nil)
		},
	}
}

func (r *remote) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <sql>",
		Short: "Check SQL against the read-only policy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.call(cmd, http.MethodPost, "/v1/validate", map[string]string{"sql": strings.Join(args, " ")})
		},
	}
}

func (r *remote) translateCommand() *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "translate <question>",
		Short: "Generate SQL for a natural language question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"question": strings.Join(args, " ")}
			if schema != "" {
				body["schema"] = schema
			}
			return r.call(cmd, http.MethodPost, "/v1/translate", body)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "schema description to use")
	return cmd
}

func (r *remote) parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <message>",
		Short: "Show how the service parses a chat message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.call(cmd, http.MethodPost, "/v1/parse", map[string]string{"text": strings.Join(args, " ")})
		},
	}
}

func (r *remote) call(cmd *cobra.Command, method, path string, body any) error {
	client := r.client
	if client == nil {
		client = &http.Client{Timeout: r.timeout}
	}
	endpoint := strings.TrimRight(r.baseURL, "/") + path
	code, responseBody, err := doRequest(cmd.Context(), client, method, endpoint, r.apiKey, body)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("request failed: %w", err)}
	}
	if code >= 400 {
		return &exitError{code: 1, err: fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(responseBody)))}
	}

	out := cmd.OutOrStdout()
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(out, pretty)
		return nil
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(out, string(responseBody))
	}
	return nil
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

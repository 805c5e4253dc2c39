// Package bicopilotctl implements the operator CLI for the copilot API.
// Every command maps to one HTTP endpoint; list-shaped responses render
// as tables unless -json asks for the raw payload.
package bicopilotctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type runner struct {
	client  *http.Client
	baseURL string
	apiKey  string
	rawJSON bool
	stdout  io.Writer
	stderr  io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("bicopilotctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "copilot API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")
	rawJSON := fs.Bool("json", false, "print raw JSON instead of tables")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	r := &runner{
		client:  client,
		baseURL: strings.TrimRight(*baseURL, "/"),
		apiKey:  *apiKey,
		rawJSON: *rawJSON,
		stdout:  stdout,
		stderr:  stderr,
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]
	switch command {
	case "health":
		return r.getJSON(ctx, "/v1/health")
	case "ready":
		return r.getJSON(ctx, "/v1/ready")
	case "status":
		return r.getJSON(ctx, "/v1/status")
	case "datasets":
		return r.datasets(ctx)
	case "dataset":
		return r.dataset(ctx, rest)
	case "query":
		return r.query(ctx, rest)
	case "analyze":
		return r.analyze(ctx, rest)
	case "anomalies":
		return r.anomalies(ctx, rest)
	case "insight":
		return r.insight(ctx, rest)
	case "history":
		return r.history(ctx, rest)
	case "workflows":
		return r.workflows(ctx)
	case "workflow":
		return r.workflow(ctx, rest)
	case "archive-run":
		return r.postJSON(ctx, "/v1/archive/run", nil)
	default:
		_, _ = fmt.Fprintf(r.stderr, "unknown command %q\n\n", command)
		writeUsage(r.stderr)
		return 2
	}
}

// getJSON fetches an endpoint and pretty-prints the response body.
func (r *runner) getJSON(ctx context.Context, path string) int {
	body, code := r.request(ctx, http.MethodGet, path, nil)
	if code != 0 {
		return code
	}
	return r.printJSON(body)
}

func (r *runner) postJSON(ctx context.Context, path string, payload any) int {
	body, code := r.request(ctx, http.MethodPost, path, payload)
	if code != 0 {
		return code
	}
	return r.printJSON(body)
}

type datasetColumn struct {
	Name     string `json:"column"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type datasetListing struct {
	Datasets []struct {
		Name        string          `json:"name"`
		Type        string          `json:"type"`
		RowCount    *int64          `json:"row_count"`
		Columns     []datasetColumn `json:"columns"`
		Description string          `json:"description"`
	} `json:"datasets"`
	Count int `json:"count"`
}

func (r *runner) datasets(ctx context.Context) int {
	body, code := r.request(ctx, http.MethodGet, "/v1/datasets", nil)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}

	var listing datasetListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return r.badResponse(err)
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"NAME", "TYPE", "ROWS", "COLUMNS", "DESCRIPTION"})
	for _, ds := range listing.Datasets {
		rows := "-"
		if ds.RowCount != nil {
			rows = fmt.Sprint(*ds.RowCount)
		}
		t.AppendRow(table.Row{ds.Name, ds.Type, rows, len(ds.Columns), ds.Description})
	}
	t.Render()
	return 0
}

type datasetDetail struct {
	Name       string          `json:"name"`
	RowCount   int64           `json:"row_count"`
	Columns    []datasetColumn `json:"columns"`
	SampleData struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	} `json:"sample_data"`
	Description string `json:"description"`
}

func (r *runner) dataset(ctx context.Context, args []string) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(r.stderr, "usage: bicopilotctl dataset <name>")
		return 2
	}
	body, code := r.request(ctx, http.MethodGet, "/v1/datasets/"+url.PathEscape(args[0]), nil)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}

	var detail datasetDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return r.badResponse(err)
	}
	_, _ = fmt.Fprintf(r.stdout, "%s (%d rows): %s\n", detail.Name, detail.RowCount, detail.Description)

	schema := r.newTable()
	schema.AppendHeader(table.Row{"COLUMN", "TYPE", "NULLABLE"})
	for _, column := range detail.Columns {
		schema.AppendRow(table.Row{column.Name, column.Type, column.Nullable})
	}
	schema.Render()

	if len(detail.SampleData.Rows) > 0 {
		_, _ = fmt.Fprintln(r.stdout, "sample:")
		r.renderResult(detail.SampleData.Columns, detail.SampleData.Rows)
	}
	return 0
}

type queryResult struct {
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	RowCount        int      `json:"row_count"`
	ExecutionTimeMS float64  `json:"execution_time_ms"`
	GeneratedSQL    string   `json:"generated_sql"`
}

func (r *runner) query(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	limit := fs.Int("limit", 0, "row limit (0 uses the server default)")
	hint := fs.String("hint", "", "classification hint: structured|natural_language|auto")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		_, _ = fmt.Fprintln(r.stderr, "usage: bicopilotctl query [-limit n] [-hint h] <sql or question>")
		return 2
	}

	payload := map[string]any{"text": text}
	if *limit > 0 {
		payload["row_limit"] = *limit
	}
	if *hint != "" {
		payload["hint"] = *hint
	}

	body, code := r.request(ctx, http.MethodPost, "/v1/tools/execute-query", payload)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}

	var result queryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return r.badResponse(err)
	}
	if result.GeneratedSQL != "" {
		_, _ = fmt.Fprintf(r.stdout, "generated sql: %s\n", result.GeneratedSQL)
	}
	r.renderResult(result.Columns, result.Rows)
	_, _ = fmt.Fprintf(r.stdout, "%d row(s) in %.2fms\n", result.RowCount, result.ExecutionTimeMS)
	return 0
}

func (r *runner) analyze(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	columns := fs.String("columns", "", "comma-separated column subset")
	groupBy := fs.String("group-by", "", "categorical column to group by")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		_, _ = fmt.Fprintln(r.stderr, "usage: bicopilotctl analyze [-columns a,b] [-group-by c] <table>")
		return 2
	}

	payload := map[string]any{"table": fs.Arg(0)}
	if *columns != "" {
		payload["columns"] = splitCSV(*columns)
	}
	if *groupBy != "" {
		payload["group_by"] = *groupBy
	}
	return r.postJSON(ctx, "/v1/tools/analyze-table", payload)
}

type anomalyReport struct {
	Table          string  `json:"table"`
	Metric         string  `json:"metric"`
	Method         string  `json:"method"`
	AnomaliesFound int     `json:"anomalies_found"`
	AnomalyRatePct float64 `json:"anomaly_rate_pct"`
	Baseline       *struct {
		Mean   float64 `json:"mean"`
		Std    float64 `json:"std"`
		Median float64 `json:"median"`
	} `json:"baseline"`
	Anomalies []struct {
		Date      string  `json:"date"`
		Value     float64 `json:"value"`
		Severity  string  `json:"severity"`
		Deviation float64 `json:"deviation"`
		Product   string  `json:"product_name"`
		Region    string  `json:"region"`
	} `json:"anomalies"`
	Message string `json:"message"`
}

func (r *runner) anomalies(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("anomalies", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	tableName := fs.String("table", "", "table to scan (default sales)")
	metric := fs.String("metric", "", "numeric column to score (default revenue)")
	dateColumn := fs.String("date-column", "", "date column for ordering (default transaction_date)")
	method := fs.String("method", "", "detection method: zscore|iqr")
	threshold := fs.Float64("threshold", 0, "detection threshold (0 uses the server default)")
	explain := fs.Bool("explain", false, "ask the AI collaborator to explain the findings")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	payload := map[string]any{}
	if *tableName != "" {
		payload["table"] = *tableName
	}
	if *metric != "" {
		payload["metric_column"] = *metric
	}
	if *dateColumn != "" {
		payload["date_column"] = *dateColumn
	}
	if *method != "" {
		payload["method"] = *method
	}
	if *threshold > 0 {
		payload["threshold"] = *threshold
	}
	if *explain {
		payload["explain"] = true
	}

	body, code := r.request(ctx, http.MethodPost, "/v1/tools/detect-anomalies", payload)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}

	var report anomalyReport
	if err := json.Unmarshal(body, &report); err != nil {
		return r.badResponse(err)
	}
	if report.AnomaliesFound == 0 {
		_, _ = fmt.Fprintln(r.stdout, report.Message)
		return 0
	}
	_, _ = fmt.Fprintf(r.stdout, "%d anomalies in %s.%s (%s, %.2f%% of rows)\n",
		report.AnomaliesFound, report.Table, report.Metric, report.Method, report.AnomalyRatePct)
	if report.Baseline != nil {
		_, _ = fmt.Fprintf(r.stdout, "baseline: mean=%.2f std=%.2f median=%.2f\n",
			report.Baseline.Mean, report.Baseline.Std, report.Baseline.Median)
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"DATE", "VALUE", "DEVIATION", "SEVERITY", "PRODUCT", "REGION"})
	for _, anomaly := range report.Anomalies {
		t.AppendRow(table.Row{anomaly.Date, anomaly.Value, anomaly.Deviation, anomaly.Severity, anomaly.Product, anomaly.Region})
	}
	t.Render()
	return 0
}

func (r *runner) insight(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("insight", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	tableName := fs.String("table", "", "table to analyze (default sales)")
	period := fs.String("period", "", "time period filter (e.g. last_30_days, 2024)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		_, _ = fmt.Fprintln(r.stderr, "usage: bicopilotctl insight [-table t] [-period p] <question>")
		return 2
	}

	payload := map[string]any{"question": question}
	if *tableName != "" {
		payload["table"] = *tableName
	}
	if *period != "" {
		payload["time_period"] = *period
	}
	return r.postJSON(ctx, "/v1/tools/synthesize-insight", payload)
}

type historyListing struct {
	Entries []struct {
		Timestamp       string  `json:"timestamp"`
		Tool            string  `json:"tool"`
		Query           string  `json:"query"`
		ResultCount     int     `json:"result_count"`
		ExecutionTimeMS float64 `json:"execution_time_ms"`
		Success         bool    `json:"success"`
		Error           string  `json:"error"`
	} `json:"entries"`
	Count int `json:"count"`
}

func (r *runner) history(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(r.stderr)
	limit := fs.Int("limit", 0, "entries to return (0 uses the server default)")
	showStats := fs.Bool("stats", false, "print aggregate stats instead of entries")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showStats {
		return r.getJSON(ctx, "/v1/history/stats")
	}

	path := "/v1/history"
	if *limit > 0 {
		path += fmt.Sprintf("?limit=%d", *limit)
	}
	body, code := r.request(ctx, http.MethodGet, path, nil)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}

	var listing historyListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return r.badResponse(err)
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"TIME", "TOOL", "QUERY", "ROWS", "MS", "OK"})
	for _, entry := range listing.Entries {
		status := "yes"
		if !entry.Success {
			status = entry.Error
		}
		t.AppendRow(table.Row{entry.Timestamp, entry.Tool, truncate(entry.Query, 48), entry.ResultCount, entry.ExecutionTimeMS, status})
	}
	t.Render()
	return 0
}

type workflowListing struct {
	Workflows []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Arguments   []struct {
			Name     string `json:"name"`
			Required bool   `json:"required"`
		} `json:"arguments"`
	} `json:"workflows"`
	Count int `json:"count"`
}

func (r *runner) workflows(ctx context.Context) int {
	body, code := r.request(ctx, http.MethodGet, "/v1/workflows", nil)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}

	var listing workflowListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return r.badResponse(err)
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"NAME", "DESCRIPTION", "ARGUMENTS"})
	for _, workflow := range listing.Workflows {
		args := make([]string, 0, len(workflow.Arguments))
		for _, argument := range workflow.Arguments {
			name := argument.Name
			if argument.Required {
				name += "*"
			}
			args = append(args, name)
		}
		t.AppendRow(table.Row{workflow.Name, workflow.Description, strings.Join(args, ", ")})
	}
	t.Render()
	return 0
}

// workflow renders one workflow; key=value arguments become query
// parameters.
func (r *runner) workflow(ctx context.Context, args []string) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(r.stderr, "usage: bicopilotctl workflow <name> [key=value ...]")
		return 2
	}
	values := url.Values{}
	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			_, _ = fmt.Fprintf(r.stderr, "invalid argument %q: expected key=value\n", arg)
			return 2
		}
		values.Set(key, value)
	}
	path := "/v1/workflows/" + url.PathEscape(args[0])
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	body, code := r.request(ctx, http.MethodGet, path, nil)
	if code != 0 {
		return code
	}
	if r.rawJSON {
		return r.printJSON(body)
	}
	var rendered struct {
		Name   string `json:"name"`
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(body, &rendered); err != nil {
		return r.badResponse(err)
	}
	_, _ = fmt.Fprintln(r.stdout, rendered.Prompt)
	return 0
}

// request performs the call and handles error responses. A zero return
// code means body holds a successful response.
func (r *runner) request(ctx context.Context, method, path string, payload any) ([]byte, int) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			_, _ = fmt.Fprintf(r.stderr, "encode request: %v\n", err)
			return nil, 1
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "build request: %v\n", err)
		return nil, 1
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(r.apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(r.apiKey))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "request failed: %v\n", err)
		return nil, 1
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "read response: %v\n", err)
		return nil, 1
	}

	if resp.StatusCode >= 400 {
		r.writeErrorResponse(resp.StatusCode, responseBody)
		return nil, 1
	}
	return responseBody, 0
}

// writeErrorResponse prints the error envelope when the body carries
// one, the raw body otherwise.
func (r *runner) writeErrorResponse(status int, body []byte) {
	var envelope struct {
		Message    string `json:"message"`
		Kind       string `json:"kind"`
		Suggestion string `json:"suggestion"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		_, _ = fmt.Fprintf(r.stderr, "%s: %s\n", envelope.Kind, envelope.Message)
		if envelope.Suggestion != "" {
			_, _ = fmt.Fprintf(r.stderr, "suggestion: %s\n", envelope.Suggestion)
		}
		return
	}
	_, _ = fmt.Fprintf(r.stderr, "http %d: %s\n", status, strings.TrimSpace(string(body)))
}

func (r *runner) renderResult(columns []string, rows [][]any) {
	t := r.newTable()
	header := make(table.Row, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	t.AppendHeader(header)
	for _, row := range rows {
		rendered := make(table.Row, len(row))
		for i, cell := range row {
			if cell == nil {
				rendered[i] = "NULL"
				continue
			}
			rendered[i] = cell
		}
		t.AppendRow(rendered)
	}
	t.Render()
}

func (r *runner) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.stdout)
	t.SetStyle(table.StyleLight)
	return t
}

func (r *runner) printJSON(body []byte) int {
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return 0
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(body))
	}
	return 0
}

func (r *runner) badResponse(err error) int {
	_, _ = fmt.Fprintf(r.stderr, "unexpected response: %v\n", err)
	return 1
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

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: bicopilotctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                          GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                           GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  status                          GET /v1/status")
	_, _ = fmt.Fprintln(w, "  datasets                        list datasets")
	_, _ = fmt.Fprintln(w, "  dataset <name>                  schema + sample rows")
	_, _ = fmt.Fprintln(w, "  query [flags] <sql|question>    run a query")
	_, _ = fmt.Fprintln(w, "  analyze [flags] <table>         statistical analysis")
	_, _ = fmt.Fprintln(w, "  anomalies [flags]               detect outliers")
	_, _ = fmt.Fprintln(w, "  insight [flags] <question>      AI business insights")
	_, _ = fmt.Fprintln(w, "  history [flags]                 recent tool dispatches")
	_, _ = fmt.Fprintln(w, "  workflows                       list analysis workflows")
	_, _ = fmt.Fprintln(w, "  workflow <name> [k=v ...]       render one workflow")
	_, _ = fmt.Fprintln(w, "  archive-run                     snapshot tables to the object store")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "flags: -base-url, -api-key, -timeout, -json")
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
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

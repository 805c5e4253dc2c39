package bicopilotctl

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
)

func TestRunStatusCommand(t *testing.T) {
	var gotMethod, gotPath, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","uptime_seconds":12}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"-api-key", "k1",
		"status",
	}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodGet || gotPath != "/v1/status" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotAPIKey != "k1" {
		t.Fatalf("api key header = %q", gotAPIKey)
	}
	if stdout.Len() == 0 {
		t.Fatal("expected command output")
	}
}

func TestRunQueryCommand(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		_, _ = w.Write([]byte(`{"columns":["region","total"],"rows":[["North",120.5]],"row_count":1,"execution_time_ms":3.2}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"query", "-limit", "5", "SELECT region, SUM(revenue) FROM sales GROUP BY region",
	}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPath != "/v1/tools/execute-query" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotPayload["row_limit"] != float64(5) {
		t.Fatalf("row_limit = %v", gotPayload["row_limit"])
	}
	if !strings.Contains(stdout.String(), "1 row(s)") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunAnomaliesCommand(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		_, _ = w.Write([]byte(`{"table":"sales","metric":"revenue","method":"iqr","anomalies_found":1,"anomaly_rate_pct":2.5,"baseline":{"mean":101.0,"std":4.0,"median":101.0},"anomalies":[{"date":"2024-06-01","value":5000,"severity":"critical","deviation":9.9}]}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{
		"-base-url", srv.URL,
		"anomalies", "-method", "iqr", "-threshold", "1.5",
	}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if gotPayload["method"] != "iqr" || gotPayload["threshold"] != float64(1.5) {
		t.Fatalf("payload = %v", gotPayload)
	}
	if !strings.Contains(stdout.String(), "critical") {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunPrintsErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"table is required","kind":"ValidationError","suggestion":"Pass a table name."}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "analyze", "sales"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "ValidationError") || !strings.Contains(stderr.String(), "suggestion:") {
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
		t.Fatal("expected usage output")
	}
}

func TestRunJSONFlagPrintsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"datasets":[],"count":0}`))
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "-json", "datasets"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), `"count": 0`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

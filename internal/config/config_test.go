package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("bicopilot-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Warehouse.Driver != "duckdb" {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.Path != "data/bicopilot.duckdb" {
		t.Fatalf("Warehouse.Path = %q", cfg.Warehouse.Path)
	}
	if cfg.Warehouse.MaxOpenConns != 20 {
		t.Fatalf("Warehouse.MaxOpenConns = %d", cfg.Warehouse.MaxOpenConns)
	}
	if cfg.Catalog.SampleRows != 5 {
		t.Fatalf("Catalog.SampleRows = %d", cfg.Catalog.SampleRows)
	}
	if cfg.History.Capacity != 100 {
		t.Fatalf("History.Capacity = %d", cfg.History.Capacity)
	}
	if cfg.Cache.Enabled {
		t.Fatal("Cache.Enabled should default to false")
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("Cache.TTL = %s", cfg.Cache.TTL)
	}
	if cfg.AI.Enabled {
		t.Fatal("AI.Enabled should default to false")
	}
	if cfg.AI.Model != "claude-sonnet-4-5-20250929" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.RetryBackoff != 2*time.Second {
		t.Fatalf("AI.RetryBackoff = %s", cfg.AI.RetryBackoff)
	}
	if cfg.ObjectStore.Endpoint != "localhost:9000" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled should default to false")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"BICOPILOT_PROFILE": "prod"})
	cfg, err := Load("bicopilot-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"BICOPILOT_PROFILE":                  "test",
		"BICOPILOT_SERVICE_NAME":             "bicopilot-custom",
		"BICOPILOT_HTTP_ADDR":                ":9999",
		"BICOPILOT_HTTP_READ_TIMEOUT":        "2s",
		"BICOPILOT_HTTP_WRITE_TIMEOUT":       "3s",
		"BICOPILOT_WAREHOUSE_DRIVER":         "postgres",
		"BICOPILOT_WAREHOUSE_DSN":            "postgres://example",
		"BICOPILOT_WAREHOUSE_MAX_OPEN_CONNS": "42",
		"BICOPILOT_WAREHOUSE_MAX_IDLE_CONNS": "17",
		"BICOPILOT_CATALOG_SAMPLE_ROWS":      "11",
		"BICOPILOT_HISTORY_CAPACITY":         "250",
		"BICOPILOT_CACHE_ENABLED":            "true",
		"BICOPILOT_CACHE_TTL":                "90s",
		"BICOPILOT_AI_ENABLED":               "true",
		"BICOPILOT_AI_BASE_URL":              "https://api.example.com",
		"BICOPILOT_AI_API_KEY":               "secret-key",
		"BICOPILOT_AI_MODEL":                 "claude-test-model",
		"BICOPILOT_AI_MAX_TOKENS":            "1024",
		"BICOPILOT_AI_TEMPERATURE":           "0.3",
		"BICOPILOT_AI_TIMEOUT":               "21s",
		"BICOPILOT_AI_RETRY_BACKOFF":         "500ms",
		"BICOPILOT_OBJECTSTORE_ENDPOINT":     "s3.example.com",
		"BICOPILOT_OBJECTSTORE_BUCKET":       "bicopilot-prod",
		"BICOPILOT_OBJECTSTORE_REGION":       "us-west-2",
		"BICOPILOT_OBJECTSTORE_ACCESS_KEY":   "abc",
		"BICOPILOT_OBJECTSTORE_SECRET_KEY":   "def",
		"BICOPILOT_OBJECTSTORE_USE_SSL":      "true",
		"BICOPILOT_ARCHIVE_ENABLED":          "true",
		"BICOPILOT_ARCHIVE_INTERVAL":         "6h",
		"BICOPILOT_ARCHIVE_TABLES":           "sales, customers",
		"BICOPILOT_LOG_LEVEL":                "error",
		"BICOPILOT_AUTH_REQUIRED":            "true",
		"BICOPILOT_AUTH_STATIC_KEYS":         "k1:admin",
	})
	cfg, err := Load("bicopilot-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "bicopilot-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Warehouse.Driver != "postgres" {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.DSN != "postgres://example" {
		t.Fatalf("Warehouse.DSN = %q", cfg.Warehouse.DSN)
	}
	if cfg.Warehouse.MaxOpenConns != 42 {
		t.Fatalf("Warehouse.MaxOpenConns = %d", cfg.Warehouse.MaxOpenConns)
	}
	if cfg.Warehouse.MaxIdleConns != 17 {
		t.Fatalf("Warehouse.MaxIdleConns = %d", cfg.Warehouse.MaxIdleConns)
	}
	if cfg.Catalog.SampleRows != 11 {
		t.Fatalf("Catalog.SampleRows = %d", cfg.Catalog.SampleRows)
	}
	if cfg.History.Capacity != 250 {
		t.Fatalf("History.Capacity = %d", cfg.History.Capacity)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("Cache.Enabled = false, want true")
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Fatalf("Cache.TTL = %s", cfg.Cache.TTL)
	}
	if !cfg.AI.Enabled {
		t.Fatal("AI.Enabled = false, want true")
	}
	if cfg.AI.BaseURL != "https://api.example.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "claude-test-model" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.MaxTokens != 1024 {
		t.Fatalf("AI.MaxTokens = %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.AI.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("AI.RetryBackoff = %s", cfg.AI.RetryBackoff)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "bicopilot-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if !cfg.Archive.Enabled {
		t.Fatal("Archive.Enabled = false, want true")
	}
	if cfg.Archive.Interval != 6*time.Hour {
		t.Fatalf("Archive.Interval = %s", cfg.Archive.Interval)
	}
	if got := cfg.ArchiveTables(); len(got) != 2 || got[0] != "sales" || got[1] != "customers" {
		t.Fatalf("ArchiveTables() = %v", got)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:admin" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
}

func TestLoadFallsBackToAnthropicKey(t *testing.T) {
	lookup := mapLookup(map[string]string{"ANTHROPIC_API_KEY": "fallback-key"})
	cfg, err := Load("bicopilot-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.APIKey != "fallback-key" {
		t.Fatalf("AI.APIKey = %q, want fallback", cfg.AI.APIKey)
	}

	lookup = mapLookup(map[string]string{
		"BICOPILOT_AI_API_KEY": "primary",
		"ANTHROPIC_API_KEY":    "fallback-key",
	})
	cfg, err = Load("bicopilot-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.APIKey != "primary" {
		t.Fatalf("AI.APIKey = %q, want primary", cfg.AI.APIKey)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"BICOPILOT_PROFILE": "oops"},
		{"BICOPILOT_HTTP_READ_TIMEOUT": "NaN"},
		{"BICOPILOT_WAREHOUSE_DRIVER": "sqlite"},
		{"BICOPILOT_WAREHOUSE_MAX_OPEN_CONNS": "oops"},
		{"BICOPILOT_HISTORY_CAPACITY": "0"},
		{"BICOPILOT_CACHE_ENABLED": "true", "BICOPILOT_CACHE_TTL": "0s"},
		{"BICOPILOT_AI_TEMPERATURE": "bad"},
		{"BICOPILOT_ARCHIVE_ENABLED": "true", "BICOPILOT_ARCHIVE_INTERVAL": "-1h"},
		{"BICOPILOT_AUTH_REQUIRED": "not-bool"},
		{"BICOPILOT_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("bicopilot-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

package config

import (
	"log/slog"
	"os"
	"testing"
)

var envVars = []string{
	"DATA_PATH", "STORE_BACKEND", "STORE_PATH", "VECTOR_SIZE",
	"QDRANT_URL", "QDRANT_COLLECTION",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "SYNC_BATCH_SIZE", "QUERY_K",
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv unsets every config variable for the duration of the test.
// t.Setenv records the original value so it is restored on cleanup.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

// chdirTemp moves into an empty directory so no stray .env file is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	originalWd, _ := os.Getwd()
	_ = os.Chdir(t.TempDir())
	t.Cleanup(func() {
		_ = os.Chdir(originalWd)
	})
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:    "defaults with vector size",
			env:     map[string]string{"VECTOR_SIZE": "768"},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorSize == 768 &&
					cfg.DataPath == "data" &&
					cfg.StoreBackend == BackendLocal &&
					cfg.StorePath == "chroma" &&
					cfg.ChunkSize == 800 &&
					cfg.ChunkOverlap == 80 &&
					cfg.SyncBatchSize == 64 &&
					cfg.QueryK == 5 &&
					cfg.LLMModelName == "mistral" &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text"
			},
		},
		{
			name:    "missing VECTOR_SIZE",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "invalid VECTOR_SIZE",
			env:     map[string]string{"VECTOR_SIZE": "invalid"},
			wantErr: true,
		},
		{
			name:    "zero VECTOR_SIZE",
			env:     map[string]string{"VECTOR_SIZE": "0"},
			wantErr: true,
		},
		{
			name:    "overlap not smaller than size",
			env:     map[string]string{"VECTOR_SIZE": "8", "CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"},
			wantErr: true,
		},
		{
			name:    "non-numeric batch size",
			env:     map[string]string{"VECTOR_SIZE": "8", "SYNC_BATCH_SIZE": "many"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"VECTOR_SIZE": "8", "STORE_BACKEND": "chroma"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"VECTOR_SIZE": "8", "LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name: "custom values",
			env: map[string]string{
				"VECTOR_SIZE":     "384",
				"STORE_BACKEND":   "Qdrant",
				"DATA_PATH":       "/srv/docs",
				"CHUNK_SIZE":      "400",
				"CHUNK_OVERLAP":   "40",
				"SYNC_BATCH_SIZE": "8",
				"LOG_LEVEL":       "debug",
				"LOG_FORMAT":      "JSON",
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.StoreBackend == BackendQdrant &&
					cfg.DataPath == "/srv/docs" &&
					cfg.ChunkSize == 400 &&
					cfg.ChunkOverlap == 40 &&
					cfg.SyncBatchSize == 8 &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/.env", []byte("VECTOR_SIZE=16\nDATA_PATH=docs\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	originalWd, _ := os.Getwd()
	_ = os.Chdir(dir)
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VectorSize != 16 {
		t.Errorf("Load() VectorSize = %v, want 16", cfg.VectorSize)
	}
	if cfg.DataPath != "docs" {
		t.Errorf("Load() DataPath = %v, want docs", cfg.DataPath)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         string
	}{
		{name: "env var set", value: "set-value", defaultValue: "default", want: "set-value"},
		{name: "empty env var uses default", value: "", defaultValue: "default", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_VAR", tt.value)
			got := getEnv("TEST_ENV_VAR", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", "TEST_ENV_VAR", tt.defaultValue, got, tt.want)
			}
		})
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formsync/pkg/config"
)

func env(values map[string]string) config.Option {
	return config.WithLookup(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", config.WithEnvFile(""), env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	lvl, err := cfg.Level()
	if err != nil || lvl != zapcore.InfoLevel {
		t.Fatalf("level = %v, %v", lvl, err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "formsync.yaml", `
debounce: 1s
max_wait: 0s
locale: ru
server:
  addr: ":9000"
  database_type: postgres
  database_url: postgres://localhost/formsync
`)
	dotenv := write(t, dir, ".env", "FORMSYNC_LOCALE=en\nFORMSYNC_TIMEOUT=3s\n")

	cfg, err := config.Load(path,
		config.WithEnvFile(dotenv),
		env(map[string]string{"FORMSYNC_LOCALE": "pt-BR", "FORMSYNC_LOG_LEVEL": "debug"}),
	)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := config.Default()
	want.Debounce = time.Second
	want.MaxWait = 0
	want.Timeout = 3 * time.Second
	want.Locale = "pt-BR"
	want.LogLevel = "debug"
	want.Server.Addr = ":9000"
	want.Server.DatabaseType = config.DatabasePostgres
	want.Server.DatabaseURL = "postgres://localhost/formsync"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.env")
	if _, err := config.Load("", config.WithEnvFile(missing), env(nil)); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown key", yaml: "debounse: 1s\n", wantErr: "debounse"},
		{name: "bad duration env", env: map[string]string{"FORMSYNC_DEBOUNCE": "soon"}, wantErr: "FORMSYNC_DEBOUNCE"},
		{name: "zero debounce", yaml: "debounce: 0s\n", wantErr: "debounce must be positive"},
		{name: "negative max wait", env: map[string]string{"FORMSYNC_MAX_WAIT": "-1s"}, wantErr: "max_wait"},
		{name: "bad database", env: map[string]string{"FORMSYNC_SERVER_DATABASE_TYPE": "mysql"}, wantErr: "database_type"},
		{name: "bad level", env: map[string]string{"FORMSYNC_LOG_LEVEL": "loud"}, wantErr: "log_level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := ""
			if tc.yaml != "" {
				path = write(t, dir, strings.ReplaceAll(tc.name, " ", "_")+".yaml", tc.yaml)
			}
			_, err := config.Load(path, config.WithEnvFile(""), env(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), config.WithEnvFile(""), env(nil)); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"LISTEN_ADDR", "LOG_LEVEL", "LOG_FORMAT", "CALENDAR_PROVIDER",
	"GRAPH_TENANT_ID", "GRAPH_CLIENT_ID", "GRAPH_CLIENT_SECRET", "GRAPH_ENDPOINT",
	"GOOGLE_CREDENTIALS_FILE", "GOOGLE_SUBJECT", "GOOGLE_ROOMS_FILE",
	"TIMEZONE", "LOCALE", "WORKING_HOURS_STORE", "WORKING_HOURS_FILE", "DATABASE_URL",
	"ROOM_POLICIES_FILE", "JWT_SECRET", "STATIC_TOKENS",
	"FANOUT_LIMIT", "FETCH_TIMEOUT", "RESOLVE_TIMEOUT", "WINDOW_DAYS", "TITLE_CACHE_TTL", "PROVIDER_RATE_LIMIT",
	"NOTIFIER", "SENDGRID_API_KEY", "SENDGRID_FROM_EMAIL", "SENDGRID_FROM_NAME",
	"NOTIFY_WATCHERS", "FALLBACK_APPROVER", "FALLBACK_SENDER", "PUBLIC_BASE_URL", "CORS_ORIGINS",
}

// clearEnv blanks every variable Load reads; blank values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func setGraph(t *testing.T) {
	t.Helper()
	t.Setenv("GRAPH_TENANT_ID", "tenant")
	t.Setenv("GRAPH_CLIENT_ID", "client")
	t.Setenv("GRAPH_CLIENT_SECRET", "secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when optional variables are missing", func(t *testing.T) {
		clearEnv(t)
		setGraph(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.ListenAddr != ":8080" || cfg.Provider != ProviderGraph || cfg.Locale != "nl" {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
		if cfg.FanoutLimit != 8 || cfg.FetchTimeout != 10*time.Second || cfg.ResolveTimeout != 5*time.Second {
			t.Fatalf("unexpected fan-out defaults %+v", cfg)
		}
		if cfg.TitleCacheTTL != 15*time.Minute || cfg.WindowDays != 10 {
			t.Fatalf("unexpected cache defaults %+v", cfg)
		}
		if cfg.WorkingHoursStore != StoreFile || cfg.Notifier != NotifierLog {
			t.Fatalf("unexpected store or notifier %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)
		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: JWT_SECRET, GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("requires provider specific values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CALENDAR_PROVIDER", "Google")
		t.Setenv("STATIC_TOKENS", "abc:jan@example.org")
		t.Setenv("WORKING_HOURS_STORE", "postgres")
		_, err := Load()
		expected := "missing required environment variables: GOOGLE_CREDENTIALS_FILE, GOOGLE_ROOMS_FILE, DATABASE_URL"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("parses durations lists and tokens", func(t *testing.T) {
		clearEnv(t)
		setGraph(t)
		t.Setenv("FETCH_TIMEOUT", "3s")
		t.Setenv("TITLE_CACHE_TTL", "1m")
		t.Setenv("FANOUT_LIMIT", "4")
		t.Setenv("PROVIDER_RATE_LIMIT", "2.5")
		t.Setenv("NOTIFY_WATCHERS", "a@example.org, b@example.org,")
		t.Setenv("STATIC_TOKENS", "t1:jan@example.org,t2:desk@example.org")
		t.Setenv("NOTIFIER", "sendgrid")
		t.Setenv("SENDGRID_API_KEY", "sg")
		t.Setenv("SENDGRID_FROM_EMAIL", "rooms@example.org")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.FetchTimeout != 3*time.Second || cfg.TitleCacheTTL != time.Minute || cfg.FanoutLimit != 4 {
			t.Fatalf("unexpected parsed values %+v", cfg)
		}
		if cfg.ProviderRateLimit != 2.5 {
			t.Fatalf("expected rate 2.5, got %v", cfg.ProviderRateLimit)
		}
		if len(cfg.NotifyWatchers) != 2 || cfg.NotifyWatchers[1] != "b@example.org" {
			t.Fatalf("unexpected watchers %v", cfg.NotifyWatchers)
		}
		if cfg.StaticTokens["t2"] != "desk@example.org" {
			t.Fatalf("unexpected tokens %v", cfg.StaticTokens)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		setGraph(t)
		t.Setenv("FANOUT_LIMIT", "zero")
		t.Setenv("FETCH_TIMEOUT", "-1s")
		t.Setenv("NOTIFIER", "pigeon")
		_, err := Load()
		expected := "invalid environment variables: FANOUT_LIMIT, FETCH_TIMEOUT, NOTIFIER"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FALLBACK_APPROVER=office@example.org\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FALLBACK_APPROVER", "")
	os.Unsetenv("FALLBACK_APPROVER")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("FALLBACK_APPROVER"); got != "office@example.org" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestLoadRooms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rooms.yaml")
	doc := "rooms:\n  - name: Kantine\n    email: kantine@example.org\n  - id: b1\n    name: Businessruimte\n    email: business@example.org\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rooms, err := LoadRooms(path)
	if err != nil {
		t.Fatalf("load rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "kantine@example.org" || rooms[1].ID != "b1" {
		t.Fatalf("unexpected rooms %+v", rooms)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("rooms:\n  - name: Nowhere\n"), 0o600)
	if _, err := LoadRooms(bad); err == nil {
		t.Fatalf("expected error for a room without email")
	}
}

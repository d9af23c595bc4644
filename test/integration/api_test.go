package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/dispatcher2-web/internal/api"
	"github.com/eugenenazirov/dispatcher2-web/internal/application"
	"github.com/eugenenazirov/dispatcher2-web/internal/config"
)

func loadConfig(t *testing.T, localSettings string) config.Config {
	t.Helper()

	for _, key := range []string{"DEBUG", "SECRET_KEY", "PAGE_LIMIT", "PORT", "PROJECT_DIR", "DB_NAME", "SESSION_TIMEOUT"} {
		t.Setenv("DISPATCHER2_"+key, "")
	}

	dir := t.TempDir()
	if localSettings != "" {
		if err := os.WriteFile(filepath.Join(dir, "local_settings.yaml"), []byte(localSettings), 0o600); err != nil {
			t.Fatalf("write local settings: %v", err)
		}
	}

	cfg, err := config.Load(&config.CLIOverrides{ProjectDir: &dir})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func performRequest(t *testing.T, handler http.Handler, target, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	cfg := loadConfig(t, `
secret_key: integration-secret
page_limit: 4
config:
  db_name: dispatcher2_it
  db_passwd: hunter2
`)

	sessions, err := application.NewSessionManager(cfg)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	handler := api.NewRouter(api.NewHandler(cfg, api.WithSessions(sessions)), zaptest.NewLogger(t), api.WithRateLimit(0, 0))

	rec := performRequest(t, handler, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, handler, "/api/settings", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	token, err := sessions.Issue("operator")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	values := make(map[string]string)
	for page := 1; ; page++ {
		rec = performRequest(t, handler, "/api/settings?page="+strconv.Itoa(page), token.Value)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from settings, got %d", rec.Code)
		}

		var body struct {
			Items []struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"items"`
			PageSize   int    `json:"pageSize"`
			TotalPages int    `json:"totalPages"`
			Source     string `json:"source"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.PageSize != 4 || body.Source != cfg.Source {
			t.Fatalf("unexpected page metadata: size %d source %q", body.PageSize, body.Source)
		}
		for _, item := range body.Items {
			values[item.Key] = item.Value
		}
		if page >= body.TotalPages {
			break
		}
	}

	if values["config.db_name"] != "dispatcher2_it" {
		t.Fatalf("expected override to be served, got %q", values["config.db_name"])
	}
	if values["config.db_host"] != "localhost" || values["session_timeout"] != "3600" {
		t.Fatalf("expected defaults to survive, got %v", values)
	}
	if values["config.db_passwd"] != "********" {
		t.Fatalf("expected password to be redacted, got %q", values["config.db_passwd"])
	}
}

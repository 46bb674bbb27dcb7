package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/NovoNihilo/clipforge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()

	result := CheckDiskSpace("test", dir, 1)
	if !result.Passed {
		t.Fatalf("expected pass with 1-byte floor, got: %s", result.Detail)
	}
	if result.Detail == "" {
		t.Fatal("expected free-space detail")
	}

	// No filesystem has this much free.
	result = CheckDiskSpace("test", dir, ^uint64(0))
	if result.Passed {
		t.Fatal("expected failure with impossible floor")
	}
}

func TestCheckDiskSpace_MissingPath(t *testing.T) {
	result := CheckDiskSpace("test", filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckTwitchCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Twitch.ClientID = "id"
	cfg.Twitch.ClientSecret = "secret"
	if result := CheckTwitchCredentials(&cfg); !result.Passed {
		t.Fatalf("expected pass with both credentials, got: %s", result.Detail)
	}

	cfg.Twitch.ClientSecret = ""
	if result := CheckTwitchCredentials(&cfg); result.Passed {
		t.Fatal("expected failure without client secret")
	}

	cfg.Twitch.ClientID = ""
	if result := CheckTwitchCredentials(&cfg); result.Passed {
		t.Fatal("expected failure without client id")
	}
}

func llmStub(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": content},
				},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckLLM_OK(t *testing.T) {
	server := llmStub(t, http.StatusOK, `{"ok":true}`)
	result := CheckLLM(context.Background(), "Decision LLM", config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "Decision LLM", config.LLMConfig{})
	if result.Passed {
		t.Fatal("expected failure without API key")
	}
	if result.Detail != "API key missing" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckLLM_AuthRejected(t *testing.T) {
	server := llmStub(t, http.StatusUnauthorized, "")
	result := CheckLLM(context.Background(), "Decision LLM", config.LLMConfig{
		APIKey:  "bad-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ChecksEveryConcern(t *testing.T) {
	server := llmStub(t, http.StatusOK, `{"ok":true}`)

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputsDir = filepath.Join(base, "outputs")
	cfg.Paths.ArchivesDir = filepath.Join(base, "archives")
	cfg.Paths.AssetsDir = filepath.Join(base, "assets")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputsDir, cfg.Paths.ArchivesDir, cfg.Paths.AssetsDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	cfg.Twitch.ClientID = "id"
	cfg.Twitch.ClientSecret = "secret"
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = server.URL
	cfg.LLM.Model = "test-model"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

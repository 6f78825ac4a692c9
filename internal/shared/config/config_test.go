package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "PORT", "MAX_FILE_SIZE", "LLM_PROVIDER", "AUTH_MODE", "OBJECT_STORE", "LLM_TIMEOUT_SECONDS", "CORS_ALLOW_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Env != "dev" || cfg.Port != "8080" {
		t.Fatalf("unexpected env/port %q %q", cfg.Env, cfg.Port)
	}
	if cfg.MaxFileSize != 16<<20 {
		t.Fatalf("unexpected max file size %d", cfg.MaxFileSize)
	}
	if cfg.LLMProvider != LLMProviderGroq || cfg.AuthMode != AuthModeOpaque {
		t.Fatalf("unexpected provider/auth %q %q", cfg.LLMProvider, cfg.AuthMode)
	}
	if cfg.ObjectStoreType != "local" || cfg.LLMTimeout != 60*time.Second {
		t.Fatalf("unexpected store/timeout %q %s", cfg.ObjectStoreType, cfg.LLMTimeout)
	}
	if len(cfg.CORSAllowOrigin) != 1 || cfg.CORSAllowOrigin[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowOrigin)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("dev should be dev-like")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("MAX_FILE_SIZE", "1024")
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("LLM_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.test, http://b.test ,")

	cfg := Load()

	if cfg.Env != "production" || cfg.IsDevLike() {
		t.Fatalf("unexpected env %q", cfg.Env)
	}
	if cfg.MaxFileSize != 1024 || cfg.LLMProvider != LLMProviderNone || cfg.AuthMode != AuthModeJWT {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.ObjectStoreType != "s3" || cfg.LLMTimeout != 5*time.Second {
		t.Fatalf("unexpected store/timeout %q %s", cfg.ObjectStoreType, cfg.LLMTimeout)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowOrigin)
	}
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE", "huge")
	if got := getEnvInt("MAX_FILE_SIZE", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	t.Setenv("MAX_FILE_SIZE", "-3")
	if got := getEnvInt("MAX_FILE_SIZE", 7); got != 7 {
		t.Fatalf("expected fallback for negative, got %d", got)
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport INVOICE_TEST_A=\"from-file\"\nINVOICE_TEST_B='kept'\nnot a pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("INVOICE_TEST_B", "from-env")
	t.Setenv("INVOICE_TEST_A", "")
	os.Unsetenv("INVOICE_TEST_A")

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))
	defer os.Unsetenv("INVOICE_TEST_A")

	if got := os.Getenv("INVOICE_TEST_A"); got != "from-file" {
		t.Fatalf("expected INVOICE_TEST_A from file, got %q", got)
	}
	if got := os.Getenv("INVOICE_TEST_B"); got != "from-env" {
		t.Fatalf("expected INVOICE_TEST_B from env, got %q", got)
	}
}

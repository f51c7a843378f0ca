package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const goodYAML = `
environment: test
server:
  port: 8080
audit:
  backend: none
llm:
  api_key: sk-test
  model: gpt-4o-mini
vendors:
  timeout: 5s
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return p
}

func TestLoadValid(t *testing.T) {
	c, err := Load(writeTemp(t, goodYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Environment != "test" {
		t.Fatalf("environment = %q", c.Environment)
	}
	if c.Vendors.Timeout != 5*time.Second {
		t.Fatalf("vendor timeout = %v", c.Vendors.Timeout)
	}
}

func TestValidateRejectsMissingLLMKey(t *testing.T) {
	yaml := `
environment: test
audit:
  backend: none
llm:
  model: gpt-4o-mini
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatalf("expected error for missing llm.api_key")
	}
}

func TestValidateRejectsBadAuditBackend(t *testing.T) {
	yaml := `
environment: test
audit:
  backend: postgres
llm:
  api_key: sk-test
  model: gpt-4o-mini
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatalf("expected error for bad audit backend")
	}
}

func TestLoadWithEnvOverridesSecrets(t *testing.T) {
	t.Setenv("POLYGON_API_KEY", "pk-env")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	c, err := LoadWithEnv(writeTemp(t, goodYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Vendors.Polygon.APIKey != "pk-env" {
		t.Fatalf("polygon key = %q", c.Vendors.Polygon.APIKey)
	}
	if c.LLM.APIKey != "sk-env" {
		t.Fatalf("llm key = %q", c.LLM.APIKey)
	}
}

func TestLoadWithEnvSatisfiesValidation(t *testing.T) {
	// llm.api_key absent from YAML but supplied via env must pass.
	yaml := `
environment: test
audit:
  backend: none
llm:
  model: gpt-4o-mini
`
	t.Setenv("OPENAI_API_KEY", "sk-env")
	if _, err := LoadWithEnv(writeTemp(t, yaml)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultVendorTimeout(t *testing.T) {
	yaml := `
environment: test
audit:
  backend: none
llm:
  api_key: sk-test
  model: gpt-4o-mini
`
	c, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Vendors.Timeout != 5*time.Second {
		t.Fatalf("default vendor timeout = %v", c.Vendors.Timeout)
	}
}

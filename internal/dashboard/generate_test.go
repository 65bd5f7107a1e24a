package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	t.Setenv("PROMETHEUS_DATASOURCE_UID", "")
	if err := Render(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	t.Setenv("PROMETHEUS_DATASOURCE_UID", "uid2")

	dir := t.TempDir()
	if err := Render(dir); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "netattack-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), "uid1") {
		t.Fatalf("greptime uid not rendered")
	}
	if !strings.Contains(string(b), "FROM attack_episodes") || !strings.Contains(string(b), "FROM attack_steps") {
		t.Fatalf("table names not rendered")
	}
	var v map[string]any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("dashboard is not valid JSON: %v", err)
	}

	b, err = os.ReadFile(filepath.Join(dir, "netattack-runner.json"))
	if err != nil {
		t.Fatalf("read runner dashboard: %v", err)
	}
	if !strings.Contains(string(b), "uid2") {
		t.Fatalf("prometheus uid not rendered")
	}
}

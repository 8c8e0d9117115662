package app

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"stationsim/internal/config"
)

func writeSampleTemplate(t *testing.T, dir string) string {
	t.Helper()
	doc := map[string]interface{}{
		"baseName":           "sim",
		"nameSuffix":         "-",
		"chargePointVendor":  "Acme",
		"chargePointModel":   "Fast150",
		"ocppVersion":        "1.6",
		"numberOfConnectors": 1,
		"Connectors": map[string]interface{}{
			"1": map[string]interface{}{"bootStatus": "Available"},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildCredentials_BasicAuthWins(t *testing.T) {
	cfg := config.Config{BearerSigningSecret: "shared-secret"}
	creds, err := buildCredentials(cfg, "user", "pass", "station-1")
	if err != nil {
		t.Fatalf("buildCredentials: %v", err)
	}
	h := http.Header{}
	creds.ApplyTo(h)
	if got := h.Get("Authorization"); !strings.HasPrefix(got, "Basic ") {
		t.Fatalf("got Authorization %q want Basic credentials", got)
	}
}

func TestBuildCredentials_BearerFallback(t *testing.T) {
	cfg := config.Config{BearerSigningSecret: "shared-secret"}
	creds, err := buildCredentials(cfg, "", "", "station-1")
	if err != nil {
		t.Fatalf("buildCredentials: %v", err)
	}
	h := http.Header{}
	creds.ApplyTo(h)
	if got := h.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
		t.Fatalf("got Authorization %q want Bearer token", got)
	}
}

func TestInstanceSuffix(t *testing.T) {
	os.Unsetenv("CF_INSTANCE_INDEX")
	if got := instanceSuffix(); got != "" {
		t.Fatalf("got %q want empty", got)
	}
	os.Setenv("CF_INSTANCE_INDEX", "2")
	defer os.Unsetenv("CF_INSTANCE_INDEX")
	if got := instanceSuffix(); got != "-2" {
		t.Fatalf("got %q want -2", got)
	}
}

func TestApp_NewBuildsStationsWithDistinctIDs(t *testing.T) {
	dir := t.TempDir()
	templatePath := writeSampleTemplate(t, dir)

	cfg := config.Config{
		TemplateFile:     templatePath,
		ConfigDir:        filepath.Join(dir, "stations"),
		NumberOfStations: 3,
		CacheCapacity:    16,
	}

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(a.stations) != 3 {
		t.Fatalf("got %d stations want 3", len(a.stations))
	}
	seen := map[string]bool{}
	for _, st := range a.stations {
		if seen[st.ID()] {
			t.Fatalf("duplicate station id %q", st.ID())
		}
		seen[st.ID()] = true
	}
}

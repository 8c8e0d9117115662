package config

import (
	"os"
	"testing"
)

func TestLoad_EnvOverridesDefault(t *testing.T) {
	os.Setenv("TEMPLATE_FILE", "/tmp/station.json")
	os.Setenv("NUMBER_OF_STATIONS", "3")
	defer os.Unsetenv("TEMPLATE_FILE")
	defer os.Unsetenv("NUMBER_OF_STATIONS")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TemplateFile != "/tmp/station.json" {
		t.Fatalf("got %q", cfg.TemplateFile)
	}
	if cfg.NumberOfStations != 3 {
		t.Fatalf("got %d", cfg.NumberOfStations)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level to survive, got %q", cfg.LogLevel)
	}
}

func TestLoad_MissingTemplateFileFails(t *testing.T) {
	os.Unsetenv("TEMPLATE_FILE")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing TEMPLATE_FILE")
	}
}

func TestLoadInto_RejectsNonPointer(t *testing.T) {
	var cfg Config
	if err := LoadInto(cfg); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
}

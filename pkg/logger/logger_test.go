package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNamedAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(Options{Level: "debug", Format: "json", Writer: &buf})
	defer InitLogger(Options{Format: "json", Writer: &bytes.Buffer{}})

	Named("harvester").Info().Int("rows", 3).Msg("page fetched")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if entry["component"] != "harvester" {
		t.Errorf("expected component harvester, got %v", entry["component"])
	}
	if entry["rows"] != float64(3) {
		t.Errorf("expected rows 3, got %v", entry["rows"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(Options{Level: "warn", Format: "json", Writer: &buf})
	defer InitLogger(Options{Format: "json", Writer: &bytes.Buffer{}})

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warn line missing: %q", out)
	}
}

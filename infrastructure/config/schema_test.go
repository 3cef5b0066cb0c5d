package config

import (
	"encoding/json"
	"strings"
	"testing"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()

	if schema.Schema != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("Schema = %s, want draft/2020-12", schema.Schema)
	}
	if schema.Type != "object" {
		t.Errorf("Type = %s, want object", schema.Type)
	}

	expected := []string{"name", "version", "description", "synthesis", "adaptation", "batch",
		"cache", "reports", "export", "resilience", "logging", "telemetry"}
	for _, prop := range expected {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("missing property: %s", prop)
		}
	}
}

func TestGenerateSchema_Enums(t *testing.T) {
	schema := GenerateSchema()

	tests := []struct {
		section, field string
		want           []string
	}{
		{"synthesis", "strategy", domainconfig.Strategies},
		{"synthesis", "constraint_system", domainconfig.ConstraintSystems},
		{"cache", "backend", domainconfig.CacheBackends},
		{"reports", "backend", domainconfig.ReportBackends},
		{"export", "backend", domainconfig.ExportBackends},
		{"logging", "level", domainconfig.LogLevels},
	}

	for _, tt := range tests {
		t.Run(tt.section+"."+tt.field, func(t *testing.T) {
			got := schema.Properties[tt.section].Properties[tt.field].Enum
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("enum = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	jsonStr, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("SchemaJSON() returned invalid JSON: %v", err)
	}
	if parsed["title"] != "tastate Configuration" {
		t.Errorf("title = %v", parsed["title"])
	}
	if !strings.Contains(jsonStr, "\n  ") {
		t.Error("SchemaJSON() should be indented")
	}
}

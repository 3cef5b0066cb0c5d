package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
)

const workerModel = `name: worker
clocks: [x, y]
variables:
  - name: n
    initial: 0
processes:
  - name: P
    initial: idle
    locations:
      - id: idle
      - id: busy
        invariant: ["x <= 5"]
    edges:
      - from: idle
        to: busy
        resets: [{clock: x, value: 0}]
        updates: [{target: n, value: 1}]
`

const workerTarget = `name: busy-at-3
model: worker.yaml
locations: [busy]
variables:
  n: 1
zone: ["x == 3", "y == 1"]
`

// writeFiles writes name/content pairs into a fresh directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), append(args, "--log-level", "error"))
	return stdout.String(), stderr.String(), err
}

func TestApp_Version(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "tastate version") {
		t.Errorf("version output missing 'tastate version', got: %s", out)
	}
}

func TestApp_Help(t *testing.T) {
	out, _, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"timed automaton", "construct", "synthesize", "batch", "watch", "mcp"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_Validate(t *testing.T) {
	dir := writeFiles(t, map[string]string{"tastate.yaml": `
name: lab
version: "1.0"
synthesis:
  strategy: zone
  reduce: true
cache:
  enabled: false
`})

	out, _, err := run(t, "validate", "-c", filepath.Join(dir, "tastate.yaml"))
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}
	for _, want := range []string{"valid", "Name: lab", "Strategy: zone", "Cache: disabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("validate output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	dir := writeFiles(t, map[string]string{"tastate.yaml": `
name: lab
version: "1.0"
synthesis:
  strategy: teleport
`})

	if _, _, err := run(t, "validate", "-c", filepath.Join(dir, "tastate.yaml")); err == nil {
		t.Fatal("validate command should fail for an unknown strategy")
	}
	if _, _, err := run(t, "validate"); err == nil {
		t.Fatal("validate command should fail without a config file")
	}
}

func TestApp_ValidateShowSchema(t *testing.T) {
	out, _, err := run(t, "validate", "--schema")
	if err != nil {
		t.Fatalf("validate --schema failed: %v", err)
	}
	if !strings.Contains(out, "$schema") || !strings.Contains(out, "tastate Configuration") {
		t.Errorf("schema output incomplete, got: %s", out)
	}
}

func TestApp_Schema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	out, _, err := run(t, "schema", "-o", path)
	if err != nil {
		t.Fatalf("schema command failed: %v", err)
	}
	if !strings.Contains(out, "Schema exported to") {
		t.Errorf("schema output = %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("schema file not written: %v", err)
	}
	if !json.Valid(data) {
		t.Error("schema file is not valid JSON")
	}
}

func TestApp_Synthesize(t *testing.T) {
	out, _, err := run(t, "synthesize", "-z", "x == 3", "-z", "y == 1", "--json")
	if err != nil {
		t.Fatalf("synthesize command failed: %v", err)
	}

	var res struct {
		Strategy string           `json:"strategy"`
		Exact    bool             `json:"exact"`
		Witness  map[string]int64 `json:"witness"`
		Sequence []string         `json:"sequence"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Strategy != "witness" || !res.Exact {
		t.Errorf("strategy = %s, exact = %v", res.Strategy, res.Exact)
	}
	if res.Witness["x"] != 3 || res.Witness["y"] != 1 {
		t.Errorf("witness = %v, want x=3 y=1", res.Witness)
	}
	if len(res.Sequence) == 0 {
		t.Error("sequence is empty")
	}
}

func TestApp_SynthesizeTarget(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"worker.yaml": workerModel,
		"target.yaml": workerTarget,
	})

	out, _, err := run(t, "synthesize", "--target", filepath.Join(dir, "target.yaml"), "--strategy", "zone")
	if err != nil {
		t.Fatalf("synthesize command failed: %v", err)
	}
	for _, want := range []string{"Strategy: zone", "Sequence (", "Reached:"} {
		if !strings.Contains(out, want) {
			t.Errorf("synthesize output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_SynthesizeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no zone", []string{"synthesize"}},
		{"bad zone", []string{"synthesize", "-z", "x <> 3"}},
		{"bad strategy", []string{"synthesize", "-z", "x <= 3", "--strategy", "teleport"}},
		{"missing target", []string{"synthesize", "--target", "does-not-exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
		})
	}
}

func TestApp_Random(t *testing.T) {
	args := []string{"random", "--seed", "42", "--length", "8", "--clocks", "x,y,z", "--json"}

	first, _, err := run(t, args...)
	if err != nil {
		t.Fatalf("random command failed: %v", err)
	}
	second, _, err := run(t, args...)
	if err != nil {
		t.Fatalf("random command failed: %v", err)
	}
	if first != second {
		t.Errorf("seeded runs differ:\n%s\n%s", first, second)
	}

	var res struct {
		Sequence []string `json:"sequence"`
		Zone     []string `json:"zone"`
	}
	if err := json.Unmarshal([]byte(first), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, first)
	}
	if len(res.Sequence) == 0 || len(res.Zone) == 0 {
		t.Errorf("random output = %+v", res)
	}
}

func TestApp_RandomSynthesize(t *testing.T) {
	out, _, err := run(t, "random", "--seed", "7", "--synthesize", "--strategy", "zone")
	if err != nil {
		t.Fatalf("random --synthesize failed: %v", err)
	}
	if !strings.Contains(out, "Synthesized with zone") {
		t.Errorf("random output missing synthesis, got: %s", out)
	}
}

func TestApp_Construct(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"worker.yaml": workerModel,
		"target.yaml": workerTarget,
	})
	outPath := filepath.Join(dir, "adapted.json")

	out, _, err := run(t, "construct", "-t", filepath.Join(dir, "target.yaml"), "-o", outPath)
	if err != nil {
		t.Fatalf("construct command failed: %v", err)
	}
	for _, want := range []string{"Status: completed", "Verified: true", "Adapted model written to"} {
		if !strings.Contains(out, want) {
			t.Errorf("construct output missing %q, got: %s", want, out)
		}
	}

	g, err := modelfile.LoadModel(outPath)
	if err != nil {
		t.Fatalf("adapted model does not load: %v", err)
	}
	if p := g.Processes[0]; p.Locations[p.Initial].ID != "sc_L0" {
		t.Errorf("adapted initial = %s, want sc_L0", p.Locations[p.Initial].ID)
	}
}

func TestApp_ConstructJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"worker.yaml": workerModel,
		"target.yaml": workerTarget,
	})

	out, _, err := run(t, "construct", "-t", filepath.Join(dir, "target.yaml"), "--no-verify", "--json")
	if err != nil {
		t.Fatalf("construct command failed: %v", err)
	}
	var report struct {
		Status   string `json:"status"`
		Verified bool   `json:"verified"`
		Model    string `json:"model"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if report.Status != "completed" || report.Verified || report.Model != "worker" {
		t.Errorf("report = %+v", report)
	}
}

func TestApp_ConstructUnsatisfiable(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"worker.yaml": workerModel,
		"target.yaml": "model: worker.yaml\nlocations: [busy]\nzone: [\"x >= 6\"]\n",
	})

	_, _, err := run(t, "construct", "-t", filepath.Join(dir, "target.yaml"))
	if err == nil || !strings.Contains(err.Error(), "construction failed") {
		t.Errorf("construct error = %v, want construction failed", err)
	}
}

func TestApp_Batch(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"worker.yaml": workerModel,
		"batch.yaml": `model: worker.yaml
targets:
  - name: idle
    locations: [idle]
  - name: busy
    locations: [busy]
    zone: ["x <= 2", "y >= 4"]
`,
	})
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, "batch", filepath.Join(dir, "batch.yaml"), "-o", outDir, "--concurrency", "2")
	if err != nil {
		t.Fatalf("batch command failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 targets, 0 failed") {
		t.Errorf("batch output = %s", out)
	}
	for _, name := range []string{"idle.yaml", "busy.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("adapted model %s not written: %v", name, err)
		}
	}
}

func TestApp_Reports(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"worker.yaml": workerModel,
		"target.yaml": workerTarget,
	})
	config := filepath.Join(dir, "tastate.yaml")
	if err := os.WriteFile(config, []byte(`
name: lab
version: "1.0"
reports:
  backend: sqlite
  path: `+filepath.Join(dir, "reports.db")+`
`), 0600); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, "construct", "-c", config, "-t", filepath.Join(dir, "target.yaml"), "--json")
	if err != nil {
		t.Fatalf("construct command failed: %v", err)
	}
	var report struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil || report.ID == "" {
		t.Fatalf("construct output has no report id: %v\n%s", err, out)
	}

	list, _, err := run(t, "reports", "list", "-c", config)
	if err != nil {
		t.Fatalf("reports list failed: %v", err)
	}
	if !strings.Contains(list, report.ID) || !strings.Contains(list, "Total: 1") {
		t.Errorf("reports list output = %s", list)
	}

	got, _, err := run(t, "reports", "get", "-c", config, report.ID)
	if err != nil {
		t.Fatalf("reports get failed: %v", err)
	}
	if !strings.Contains(got, "Report: "+report.ID) {
		t.Errorf("reports get output = %s", got)
	}

	if _, _, err := run(t, "reports", "get", "-c", config, "missing"); err == nil {
		t.Error("reports get should fail for an unknown id")
	}
}

func TestApp_WatchRequiresModel(t *testing.T) {
	dir := writeFiles(t, map[string]string{"target.yaml": "locations: [busy]\n"})

	_, _, err := run(t, "watch", "-t", filepath.Join(dir, "target.yaml"))
	if err == nil || !strings.Contains(err.Error(), "no model") {
		t.Errorf("watch error = %v, want no model", err)
	}
}

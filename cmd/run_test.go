package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRunTestCmd rebuilds the run command's flags on a bare command so
// tests can drive runRun directly with a captured output buffer.
func newRunTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "run"}
	cmd.SetOut(out)
	cmd.Flags().Bool("follow", false, "")
	cmd.Flags().Bool("from-start", false, "")
	cmd.Flags().Bool("follow-rotate", false, "")
	cmd.Flags().String("for", "", "")
	cmd.Flags().Bool("repeat", false, "")
	cmd.Flags().StringP("out", "o", "", "")
	return cmd
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const kvRecipe = `name: kv
repeat: true
stages:
  - process: regex
    options:
      regex: (\w+)=(\d+)
`

func TestRunRecipe(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "kv.yaml", kvRecipe)
	logPath := writeFile(t, dir, "app.log", "a=1\nb=2\n")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)

	if err := runRun(cmd, []string{recipePath, logPath}); err != nil {
		t.Fatalf("runRun() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"recipe kv", "[0] regex", "a | 1", "b | 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunMultipleFiles(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "kv.yaml", kvRecipe)
	writeFile(t, dir, "one.log", "a=1\n")
	writeFile(t, dir, "two.log", "b=2\n")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)

	if err := runRun(cmd, []string{recipePath, filepath.Join(dir, "*.log")}); err != nil {
		t.Fatalf("runRun() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "a | 1") || !strings.Contains(got, "b | 2") {
		t.Errorf("globbed files should form one stream:\n%s", got)
	}
}

func TestRunRepeatFlag(t *testing.T) {
	viper.Reset()
	viper.Set("format", "json")

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "lines.yaml", "name: lines\nstages:\n  - process: read-line\n")
	logPath := writeFile(t, dir, "app.log", "first\nsecond\n")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)
	if err := cmd.Flags().Set("repeat", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runRun(cmd, []string{recipePath, logPath}); err != nil {
		t.Fatalf("runRun() error = %v", err)
	}

	var res struct {
		Recipe string `json:"recipe"`
		Passes int    `json:"passes"`
		Stages []struct {
			Name    string            `json:"name"`
			Samples []json.RawMessage `json:"samples"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("Unmarshal() error = %v\noutput:\n%s", err, out.String())
	}

	if res.Recipe != "lines" {
		t.Errorf("recipe = %q, want %q", res.Recipe, "lines")
	}
	if res.Passes != 3 {
		t.Errorf("passes = %d, want 3", res.Passes)
	}
	if len(res.Stages) != 1 || len(res.Stages[0].Samples) != 2 {
		t.Errorf("unexpected stages: %+v", res.Stages)
	}
}

func TestRunExport(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "kv.yaml", kvRecipe)
	logPath := writeFile(t, dir, "app.log", "a=1\n")
	outPath := filepath.Join(dir, "samples.csv")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)
	if err := cmd.Flags().Set("out", outPath); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runRun(cmd, []string{recipePath, logPath}); err != nil {
		t.Fatalf("runRun() error = %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "run,recipe,stage,pos,call,kind,key,block,value") {
		t.Errorf("export missing header:\n%s", data)
	}
	if !strings.Contains(string(data), "captures") {
		t.Errorf("export missing sample rows:\n%s", data)
	}
}

func TestRunMissingRecipe(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)

	if err := runRun(cmd, []string{filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("runRun() should fail for a missing recipe")
	}
}

func TestRunFollowRequiresOneFile(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "kv.yaml", kvRecipe)
	one := writeFile(t, dir, "one.log", "a=1\n")
	two := writeFile(t, dir, "two.log", "b=2\n")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)
	if err := cmd.Flags().Set("follow", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	err := runRun(cmd, []string{recipePath, one, two})
	if err == nil || !strings.Contains(err.Error(), "--follow") {
		t.Fatalf("runRun() error = %v, want --follow complaint", err)
	}
}

func TestRunForRequiresFollow(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	dir := t.TempDir()
	recipePath := writeFile(t, dir, "kv.yaml", kvRecipe)
	logPath := writeFile(t, dir, "app.log", "a=1\n")

	var out bytes.Buffer
	cmd := newRunTestCmd(&out)
	if err := cmd.Flags().Set("for", "5m"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	err := runRun(cmd, []string{recipePath, logPath})
	if err == nil || !strings.Contains(err.Error(), "--follow") {
		t.Fatalf("runRun() error = %v, want --follow complaint", err)
	}
}

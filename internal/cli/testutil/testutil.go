// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/dynsql/internal/cli/config"
	"github.com/leapstack-labs/dynsql/internal/cli/output"
	"github.com/leapstack-labs/dynsql/internal/testutil"
)

// UsersMacros is the users.yaml macro bundle of the test project.
const UsersMacros = `by_id: "select * from users where id = #{id, jdbcType=INTEGER}"
adults: "select * from users @{ifand,min_age != None,age >= :min_age}"
broken: "@{macro, nope}"
`

// ProjectConfig is the dynsql.yaml of the test project: text output and
// a sqlite file target inside the project.
const ProjectConfig = `macros_dir: macros
output: text
target:
  type: sqlite
  database: app.db
`

// SetupTestProject creates a temporary project, loads its configuration as
// the current one and resets it when the test ends. extra adds or replaces
// files (relative path -> content).
func SetupTestProject(t *testing.T, extra map[string]string) (string, *config.Config) {
	t.Helper()

	files := map[string]string{
		"dynsql.yaml":        ProjectConfig,
		"macros/users.yaml":  UsersMacros,
		"macros/columns.sql": "id, name",
	}
	for name, content := range extra {
		files[name] = content
	}
	dir := testutil.TempTree(t, files)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cfg, err := config.LoadConfig(filepath.Join(dir, "dynsql.yaml"), nil)
	if err != nil {
		t.Fatalf("failed to load test project config: %v", err)
	}
	return dir, cfg
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// GetTestdataDir returns the path to the repository testdata directory.
func GetTestdataDir(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	// Try different relative paths based on where tests are run from
	candidates := []string{
		filepath.Join(wd, "testdata"),
		filepath.Join(wd, "..", "testdata"),
		filepath.Join(wd, "..", "..", "testdata"),
		filepath.Join(wd, "..", "..", "..", "testdata"),
	}
	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "dynsql.yaml")); err == nil {
			return dir
		}
	}

	t.Fatalf("testdata directory not found from %s", wd)
	return ""
}

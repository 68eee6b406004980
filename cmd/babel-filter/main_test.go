package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testFixturePath returns the path to job file fixtures
func testFixturePath(filename string) string {
	return filepath.Join("..", "..", "internal", "config", "testdata", filename)
}

// runCLI runs the CLI in-process and returns stdout, stderr, and exit code
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = execute(ctx, args, &stdoutBuf, &stderrBuf)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

type runFixture struct {
	babelDir, filterFile, outputDir string
}

func (f runFixture) args() []string {
	return []string{f.babelDir, f.filterFile, f.outputDir}
}

func newRunFixture(t *testing.T) runFixture {
	t.Helper()
	root := t.TempDir()
	f := runFixture{
		babelDir:   filepath.Join(root, "compendia"),
		filterFile: filepath.Join(root, "nodes.jsonl"),
		outputDir:  filepath.Join(root, "out"),
	}
	for _, dir := range []string{f.babelDir, f.outputDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, f.filterFile,
		`{"id":"MONDO:1","category":["biolink:Disease"],"name":"flu"}`,
		`{"id":"PMID:2","category":["biolink:Publication"],"name":"a paper"}`,
		`{"id":"HGNC:3","category":["biolink:Gene"],"name":"BRCA1"}`,
	)
	writeFile(t, filepath.Join(f.babelDir, "Disease.txt"),
		`{"curie":"MONDO:1","names":["flu"]}`,
		`{"curie":"MONDO:9","names":["cold"]}`,
	)
	writeFile(t, filepath.Join(f.babelDir, "Publication.txt"),
		`{"curie":"PMID:2","names":["a paper"]}`,
	)
	return f
}

func writeFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestCLI_Help(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "--help")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	for _, want := range []string{"babel-filter", "run", "validate", "version"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected help to contain %q", want)
		}
	}
}

func TestCLI_RunHelp(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "run", "--help")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	for _, want := range []string{"--exclude-category", "--output-format", "--babel-identifier", "--read-buf-capacity"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected run help to contain %q", want)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "version")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(stdout, "Version: dev") {
		t.Errorf("expected version output, got: %s", stdout)
	}
}

func TestCLI_Validate(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"valid json", "valid-job.json", ExitSuccess, "format: json", ""},
		{"valid yaml", "valid-job.yaml", ExitSuccess, "format: yaml", ""},
		{"valid toml", "valid-job.toml", ExitSuccess, "format: toml", ""},
		{"invalid json", "invalid-json.json", ExitParseError, "", "Parse errors"},
		{"invalid yaml", "invalid-yaml.yaml", ExitParseError, "", "Parse errors"},
		{"unknown key", "invalid-schema-unknown-key.json", ExitValidationError, "", "Validation errors"},
		{"wrong type", "invalid-schema-wrong-type.yaml", ExitValidationError, "", "Validation errors"},
		{"missing file", "does-not-exist.json", ExitParseError, "", "Parse errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, exitCode := runCLI(t, "validate", testFixturePath(tt.file))

			if exitCode != tt.wantCode {
				t.Errorf("expected exit code %d, got %d\nstderr: %s", tt.wantCode, exitCode, stderr)
			}
			if tt.wantOut != "" && !strings.Contains(stdout, tt.wantOut) {
				t.Errorf("expected stdout to contain %q, got: %s", tt.wantOut, stdout)
			}
			if tt.wantErr != "" && !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("expected stderr to contain %q, got: %s", tt.wantErr, stderr)
			}
		})
	}
}

func TestCLI_ValidateVerboseSummary(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "validate", "-v", testFixturePath("valid-job.yaml"))

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}
	if !strings.Contains(stdout, "babel_directory: /data/babel/compendia") {
		t.Errorf("expected settings summary, got: %s", stdout)
	}
}

func TestCLI_Run(t *testing.T) {
	f := newRunFixture(t)
	report := filepath.Join(t.TempDir(), "report.json")

	args := append([]string{"run", "-e", "biolink:Publication", "--report-file", report}, f.args()...)
	stdout, stderr, exitCode := runCLI(t, args...)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}
	if !strings.Contains(stdout, "Filter run completed") {
		t.Errorf("expected summary on stdout, got: %s", stdout)
	}
	if !strings.Contains(stderr, "execution completed") {
		t.Errorf("expected execution log on stderr, got: %s", stderr)
	}

	if got := readFile(t, filepath.Join(f.outputDir, "Disease.txt")); got != "{\"curie\":\"MONDO:1\",\"names\":[\"flu\"]}\n" {
		t.Errorf("unexpected Disease.txt output: %q", got)
	}
	if got := readFile(t, filepath.Join(f.outputDir, "Publication.txt")); got != "" {
		t.Errorf("excluded identifiers must not be kept, got: %q", got)
	}
	if _, err := os.Stat(filepath.Join(f.outputDir, "NonBabelNodes.txt.gz")); err != nil {
		t.Errorf("expected residual file: %v", err)
	}
	if !strings.Contains(readFile(t, report), `"status": "success"`) {
		t.Errorf("expected report to record success")
	}
}

func TestCLI_RunOutputFormat(t *testing.T) {
	f := newRunFixture(t)

	args := append([]string{"run", "-q", "-c", "gzip"}, f.args()...)
	stdout, stderr, exitCode := runCLI(t, args...)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got: %s", stdout)
	}
	data := readFile(t, filepath.Join(f.outputDir, "Disease.txt.gz"))
	if !strings.HasPrefix(data, "\x1f\x8b") {
		t.Errorf("expected gzip output")
	}
}

func TestCLI_RunJobFile(t *testing.T) {
	f := newRunFixture(t)
	job := filepath.Join(t.TempDir(), "job.yaml")
	writeFile(t, job,
		"babel_directory: "+f.babelDir,
		"filter_file: "+f.filterFile,
		"output_directory: "+f.outputDir,
		"output_format: plain",
		"residual_file_name: leftovers.txt",
	)

	_, stderr, exitCode := runCLI(t, "run", "--config", job)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}
	if _, err := os.Stat(filepath.Join(f.outputDir, "leftovers.txt.gz")); err != nil {
		t.Errorf("expected residual file named from job file: %v", err)
	}
}

func TestCLI_RunErrors(t *testing.T) {
	f := newRunFixture(t)
	badJob := filepath.Join(t.TempDir(), "job.json")
	writeFile(t, badJob, `{"babel_directory": `)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"wrong arg count", []string{"run", f.babelDir}, ExitValidationError, "accepts 0 or 3"},
		{"no paths", []string{"run"}, ExitValidationError, "babel_directory is required"},
		{"missing babel directory", []string{"run", f.babelDir + "-x", f.filterFile, f.outputDir}, ExitValidationError, "does not exist"},
		{"unknown output format", append([]string{"run", "-c", "bzip2"}, f.args()...), ExitValidationError, "unknown output format"},
		{"job file parse error", []string{"run", "--config", badJob}, ExitParseError, "Parse errors"},
		{"bad log format", []string{"--log-format", "xml", "version"}, ExitValidationError, "unknown log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, exitCode := runCLI(t, tt.args...)

			if exitCode != tt.wantCode {
				t.Errorf("expected exit code %d, got %d\nstderr: %s", tt.wantCode, exitCode, stderr)
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("expected stderr to contain %q, got: %s", tt.wantErr, stderr)
			}
		})
	}
}

func TestCLI_RunRuntimeError(t *testing.T) {
	f := newRunFixture(t)
	if err := os.Mkdir(filepath.Join(f.outputDir, "Disease.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, stderr, exitCode := runCLI(t, append([]string{"run"}, f.args()...)...)

	if exitCode != ExitRuntimeError {
		t.Errorf("expected exit code %d, got %d", ExitRuntimeError, exitCode)
	}
	if !strings.Contains(stderr, "FILTER_FAILED") {
		t.Errorf("expected filter failure on stderr, got: %s", stderr)
	}
}

func TestCLI_RunCanceled(t *testing.T) {
	f := newRunFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, stderr, exitCode := runCLIContext(t, ctx, append([]string{"run"}, f.args()...)...)

	if exitCode != ExitRuntimeError {
		t.Errorf("expected exit code %d, got %d", ExitRuntimeError, exitCode)
	}
	if !strings.Contains(stderr, "CANCELED") {
		t.Errorf("expected cancellation on stderr, got: %s", stderr)
	}
}

func TestCLI_LogFile(t *testing.T) {
	f := newRunFixture(t)
	logPath := filepath.Join(t.TempDir(), "run.log")

	_, stderr, exitCode := runCLI(t, append([]string{"run", "--log-file", logPath}, f.args()...)...)

	if exitCode != ExitSuccess {
		t.Fatalf("expected exit code 0, got %d\nstderr: %s", exitCode, stderr)
	}
	if !strings.Contains(readFile(t, logPath), `"msg":"execution completed"`) {
		t.Errorf("expected JSON log lines in log file")
	}
}

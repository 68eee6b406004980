package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RobokopU24/babel-filter/internal/errhandling"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"empty", "", true},
		{"null byte", "a\x00b", true},
		{"simple segment", "..", true},
		{"leading segment", "../foo", true},
		{"middle segment", "foo/../bar", true},
		{"valid relative", "out/nodes.txt.gz", false},
		{"single segment", "NonBabelNodes.txt.gz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"NonBabelNodes.txt.gz", false},
		{"left.jsonl", false},
		{"", true},
		{".", true},
		{"..", true},
		{"sub/left.jsonl", true},
		{`sub\left.jsonl`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFileName(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestRequireDirAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "filter.jsonl")
	if err := os.WriteFile(file, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing")

	tests := []struct {
		name    string
		check   func(role, path string) error
		path    string
		wantErr bool
	}{
		{"dir ok", RequireDir, dir, false},
		{"dir is file", RequireDir, file, true},
		{"dir missing", RequireDir, missing, true},
		{"dir empty", RequireDir, "", true},
		{"file ok", RequireFile, file, false},
		{"file is dir", RequireFile, dir, true},
		{"file missing", RequireFile, missing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check("test path", tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errhandling.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestRequireDistinct(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "out")
	if err := os.Mkdir(other, 0o750); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(other, link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		a, b    string
		wantErr bool
	}{
		{"different", dir, other, false},
		{"identical", other, other, true},
		{"unclean spelling", other, filepath.Join(other, "..", "out") + "/", true},
		{"symlink", other, link, true},
		{"missing", other, filepath.Join(dir, "missing"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireDistinct("babel directory", tt.a, "output directory", tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errhandling.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestListRegularFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt.gz", "a.txt", "c.jsonl"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o750); err != nil {
		t.Fatal(err)
	}

	files, err := ListRegularFiles(dir)
	if err != nil {
		t.Fatalf("ListRegularFiles() error = %v", err)
	}

	want := []string{"a.txt", "b.txt.gz", "c.jsonl"}
	if len(files) != len(want) {
		t.Fatalf("ListRegularFiles() = %v, want %d files", files, len(want))
	}
	for i, name := range want {
		if files[i] != filepath.Join(dir, name) {
			t.Errorf("files[%d] = %q, want %q", i, files[i], filepath.Join(dir, name))
		}
	}

	if _, err := ListRegularFiles(filepath.Join(dir, "missing")); !errhandling.IsIO(err) {
		t.Errorf("expected io error for missing directory, got %v", err)
	}
}

// Package pathutil provides shared path validation helpers.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/RobokopU24/babel-filter/internal/errhandling"
)

// ValidateFilePath validates a file path for path traversal and invalid characters.
// Uses segment-based detection so that "data/../etc/passwd" is rejected before
// cleaning. Returns an error if the path is empty, contains null bytes, or has
// ".." in any segment.
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// ValidateFileName checks that name is a bare file name that stays inside the
// directory it is joined with.
func ValidateFileName(name string) error {
	if err := ValidateFilePath(name); err != nil {
		return err
	}
	if name == "." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name must not contain a directory: %q", name)
	}
	return nil
}

// RequireDir returns a configuration error unless path names an existing directory.
// role describes the path in the message ("babel directory", ...).
func RequireDir(role, path string) error {
	info, err := stat(role, path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errhandling.NewConfigurationError(fmt.Sprintf("%s %q is not a directory", role, path), nil)
	}
	return nil
}

// RequireFile returns a configuration error unless path names an existing
// regular file (symlinks are followed).
func RequireFile(role, path string) error {
	info, err := stat(role, path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errhandling.NewConfigurationError(fmt.Sprintf("%s %q is not a regular file", role, path), nil)
	}
	return nil
}

// SameFile reports whether a and b name the same existing file or
// directory. Links and relative paths are resolved by the filesystem.
func SameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// RequireDistinct returns a configuration error when pathA and pathB are the
// same file or directory.
func RequireDistinct(roleA, pathA, roleB, pathB string) error {
	if SameFile(pathA, pathB) {
		return errhandling.NewConfigurationError(
			fmt.Sprintf("%s %q and %s %q are the same location", roleA, pathA, roleB, pathB), nil)
	}
	return nil
}

func stat(role, path string) (fs.FileInfo, error) {
	if path == "" {
		return nil, errhandling.NewConfigurationError(role+" is required", nil)
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("%s %q does not exist", role, path), err)
	case err != nil:
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("%s %q cannot be accessed", role, path), err)
	}
	return info, nil
}

// ListRegularFiles returns the regular files directly inside dir, sorted by
// name. Subdirectories and other entries are ignored; symlinks to regular
// files are included.
func ListRegularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errhandling.NewIOError("readdir", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.Type().IsRegular() {
			files = append(files, path)
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				files = append(files, path)
			}
		}
	}
	return files, nil
}

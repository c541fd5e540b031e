// Package security guards the files the CLI writes on a user's behalf.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckWithinDir returns an error unless path resolves inside dir. Symlinks
// are resolved on path itself or, for a file that does not exist yet, on its
// nearest existing ancestor, so a link inside dir cannot point the write
// elsewhere.
func CheckWithinDir(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory path: %w", err)
	}
	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(realDir, resolveExisting(absPath))
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// resolveExisting resolves symlinks in the longest existing prefix of p.
func resolveExisting(p string) string {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real
	}
	for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, p)
			return filepath.Join(real, rest)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return p
		}
	}
}

// CheckExportPath allows writes inside the working directory or the system
// temp directory.
func CheckExportPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	allowed := []string{cwd, os.TempDir()}
	for _, dir := range allowed {
		if CheckWithinDir(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("export path %s must be within one of %v", path, allowed)
}

// SafeFileName turns an arbitrary string (a log name, a run ID) into a file
// name made of ASCII letters, digits, '.', '_' and '-'. Runs of other
// characters become one underscore; the result is at most 128 bytes.
func SafeFileName(s string) string {
	const maxLen = 128

	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pendingUnderscore = true
			continue
		}
		if pendingUnderscore && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingUnderscore = false
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ResultsFileName names the exported results of a recorded run after its log
// file and run ID, e.g. "large_log-1b4e28ba.results.json".
func ResultsFileName(logPath, runID string) string {
	base := strings.TrimSuffix(filepath.Base(logPath), filepath.Ext(logPath))
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return SafeFileName(base) + "-" + SafeFileName(short) + ".results.json"
}

package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path         string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist (resolved to: %s)", e.Path, e.ResolvedPath)
}

// Discover returns the scenario files at path: the file itself, or every
// .yaml/.yml file directly inside the directory, sorted. Relative paths
// are resolved against baseDir.
func Discover(path, baseDir string) ([]string, error) {
	resolved := path
	if !filepath.IsAbs(resolved) && baseDir != "" {
		resolved = filepath.Join(baseDir, resolved)
	}

	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path, ResolvedPath: resolved}
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return []string{resolved}, nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}
	paths := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(resolved, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

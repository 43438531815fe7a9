package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/weave/internal/ir"
)

// Decode reads descriptions from a file (by extension: .yaml, .yml,
// .cue) or from a directory holding one CUE package.
func Decode(path string) ([]FragmentDesc, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if info.IsDir() {
		return DecodeCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("failed to read %s: %v", path, err)}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	case ".cue":
		return DecodeCUE(path, data)
	default:
		return nil, &LoadError{Code: ErrCodeUnknownFormat, Message: fmt.Sprintf("unsupported file type %q (want .yaml, .yml or .cue)", filepath.Ext(path))}
	}
}

// BuildAll builds every description, rejecting duplicate fragment names.
func BuildAll(descs []FragmentDesc) ([]*ir.Fragment, error) {
	seen := make(map[string]bool, len(descs))
	frags := make([]*ir.Fragment, 0, len(descs))
	for _, d := range descs {
		f, err := Build(d)
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, &LoadError{Code: ErrCodeDuplicate, Fragment: f.Name, Message: "duplicate fragment name"}
		}
		seen[f.Name] = true
		frags = append(frags, f)
	}
	return frags, nil
}

// Load decodes and builds every fragment at path.
func Load(path string) ([]*ir.Fragment, error) {
	descs, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return BuildAll(descs)
}

// Select returns the fragment named name, or the only fragment when name
// is empty.
func Select(frags []*ir.Fragment, name string) (*ir.Fragment, error) {
	if name == "" {
		if len(frags) == 1 {
			return frags[0], nil
		}
		names := make([]string, len(frags))
		for i, f := range frags {
			names[i] = f.Name
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%d fragments loaded, choose one of: %s", len(frags), strings.Join(names, ", "))
	}
	for _, f := range frags {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("fragment %q not found", name)
}

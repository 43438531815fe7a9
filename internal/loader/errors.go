package loader

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for fragment loading.
const (
	ErrCodeNotFound      = "L001" // file or directory missing or unreadable
	ErrCodeSyntax        = "L002" // YAML or CUE syntax error
	ErrCodeSchema        = "L003" // CUE schema violation
	ErrCodeStatement     = "L004" // statement without exactly one kind
	ErrCodeUnknownBlock  = "L005" // branch to an undeclared block label
	ErrCodeDuplicate     = "L006" // duplicate variable, block or fragment name
	ErrCodeExpression    = "L007" // expression syntax error
	ErrCodeIdentifier    = "L008" // invalid or reserved identifier
	ErrCodeEnum          = "L009" // unknown scope, likelihood or threading
	ErrCodeNoBlocks      = "L010" // fragment without blocks
	ErrCodeNoFragments   = "L011" // input describes no fragment
	ErrCodeUnknownFormat = "L012" // unsupported file extension
)

// LoadError describes a problem in a fragment description.
type LoadError struct {
	Code     string
	Fragment string
	// Path locates the offending element, e.g. "blocks[2].stmts[0]".
	Path    string
	Message string
	// Pos is the CUE source position, when known.
	Pos token.Pos
}

func (e *LoadError) Error() string {
	where := ""
	if e.Fragment != "" {
		where = e.Fragment
		if e.Path != "" {
			where += "." + e.Path
		}
		where += ": "
	} else if e.Path != "" {
		where = e.Path + ": "
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s%s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, where, e.Message)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, where, e.Message)
}

// IsLoadError reports whether err is (or wraps) a LoadError, and returns
// it.
func IsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

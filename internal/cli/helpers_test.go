package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const loopYAML = `name: loop
vars:
  - name: limit
    type: int64_t
    const: true
    default: "3"
  - name: acc
    type: int64_t
    no_promote: true
    default: "0"
  - name: i
    type: int64_t
    default: "0"
blocks:
  - label: entry
    stmts:
      - set: i
        value: "0"
      - br: loop
        threading: must_yield
  - label: loop
    stmts:
      - set: acc
        value: acc + i
      - set: i
        value: i + 1
      - br: loop
        when: i < limit
        likelihood: likely
      - br: done
  - label: done
    stmts:
      - do: emit(acc)
`

// sealedYAML has a statement after an unconditional branch.
const sealedYAML = `name: sealed
blocks:
  - label: a
    stmts:
      - br: b
      - do: unreachable()
  - label: b
    stmts:
      - do: work()
`

func writeFragment(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

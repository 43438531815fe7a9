package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes one FragmentDesc per YAML document. Unknown fields
// are rejected, which catches typos such as "stmt:" for "stmts:".
func DecodeYAML(data []byte) ([]FragmentDesc, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var descs []FragmentDesc
	for i := 0; ; i++ {
		var desc FragmentDesc
		err := decoder.Decode(&desc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{
				Code:    ErrCodeSyntax,
				Path:    fmt.Sprintf("document[%d]", i),
				Message: fmt.Sprintf("failed to parse YAML: %v", err),
			}
		}
		descs = append(descs, desc)
	}
	if len(descs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFragments, Message: "no fragment documents"}
	}
	return descs, nil
}

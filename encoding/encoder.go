// Package encoding provides the encoders of structured model output and reports:
// JSON, YAML, TOML and plain text.
package encoding

import (
	"strings"

	"github.com/cockroachdb/errors"
	jsonenc "github.com/suckgeun/mcp-sample/encoding/json"
	textenc "github.com/suckgeun/mcp-sample/encoding/text"
	tomlenc "github.com/suckgeun/mcp-sample/encoding/toml"
	yamlenc "github.com/suckgeun/mcp-sample/encoding/yaml"
)

type SchemaEncoder interface {
	Marshal(req any) ([]byte, error)
	Unmarshal([]byte, any) error
	// GetFormatInstructions returns the wrapped message with message schema for the prompt
	GetFormatInstructions() string
}

type Validator interface {
	Validate(any) error
}

type Mode = string

const (
	ModeJSON      Mode = "json"
	ModeYAML      Mode = "yaml"
	ModeTOML      Mode = "toml"
	ModePlainText Mode = "text"
)

// Modes lists the supported modes
var Modes = []Mode{ModeJSON, ModeYAML, ModeTOML, ModePlainText}

// ParseMode returns the mode by name, case-insensitive.
func ParseMode(s string) (Mode, error) {
	m := strings.ToLower(strings.TrimSpace(s))
	switch m {
	case ModeJSON, ModeYAML, ModeTOML, ModePlainText:
		return m, nil
	case "yml":
		return ModeYAML, nil
	case "txt", "plain_text":
		return ModePlainText, nil
	}
	return "", errors.Newf("unsupported format %q: use one of %s", s, strings.Join(Modes, ", "))
}

// PredefinedSchemaEncoder returns the encoder for the mode and the type of req.
func PredefinedSchemaEncoder(mode Mode, req any) (SchemaEncoder, error) {
	var (
		enc SchemaEncoder
		err error
	)
	switch mode {
	case ModeJSON:
		enc, err = jsonenc.NewEncoder(req)
	case ModeYAML:
		enc = yamlenc.NewEncoder(req)
	case ModeTOML:
		enc = tomlenc.NewEncoder(req)
	case ModePlainText:
		enc = textenc.NewEncoder()
	default:
		return nil, errors.New("no predefined encoder")
	}
	return enc, err
}

var (
	_ SchemaEncoder = (*textenc.Encoder)(nil)
	_ SchemaEncoder = (*jsonenc.Encoder)(nil)
	_ SchemaEncoder = (*tomlenc.Encoder)(nil)
	_ SchemaEncoder = (*yamlenc.Encoder)(nil)

	_ Validator = (*jsonenc.Encoder)(nil)
	_ Validator = (*tomlenc.Encoder)(nil)
	_ Validator = (*yamlenc.Encoder)(nil)
)

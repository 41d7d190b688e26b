// Package text provides the plain text encoder.
package text

import (
	"encoding/json"
	"strings"
)

type Stringer interface {
	String() string
}

// Encoder writes values by their String method, and reads plain text.
type Encoder struct{}

func NewEncoder() *Encoder {
	return new(Encoder)
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	switch s := v.(type) {
	case Stringer:
		return []byte(s.String()), nil
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	}
	return json.MarshalIndent(v, "", "  ")
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	switch s := ret.(type) {
	case *string:
		*s = strings.TrimSpace(string(bs))
	case *[]byte:
		*s = bs
	default:
		return json.Unmarshal(bs, ret)
	}
	return nil
}

func (e *Encoder) GetFormatInstructions() string {
	return ""
}

package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/encoding"
)

type Search struct {
	Topic string `json:"topic" yaml:"topic" toml:"topic" jsonschema:"title=Topic,description=Topic of the search" fake:"golang"`
	Query string `json:"query" yaml:"query" toml:"query" jsonschema:"title=Query,description=Query to search for relevant content" fake:"what is golang"`
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	tcases := map[string]encoding.Mode{
		"json":  encoding.ModeJSON,
		" YAML": encoding.ModeYAML,
		"yml":   encoding.ModeYAML,
		"toml":  encoding.ModeTOML,
		"txt":   encoding.ModePlainText,
		"text":  encoding.ModePlainText,
	}
	for in, exp := range tcases {
		m, err := encoding.ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, exp, m)
	}

	_, err := encoding.ParseMode("xml")
	assert.EqualError(t, err, `unsupported format "xml": use one of json, yaml, toml, text`)
}

func TestPredefinedSchemaEncoder(t *testing.T) {
	t.Parallel()

	e, err := encoding.PredefinedSchemaEncoder(encoding.ModeYAML, Search{})
	require.NoError(t, err)
	exp := `
Respond with YAML in the following YAML schema without comments:
` + "```yaml" + `
topic: golang
query: what is golang
` + "```" + `
Make sure to return an instance of the YAML, not the schema itself.
`
	assert.Equal(t, exp, e.GetFormatInstructions())

	e, err = encoding.PredefinedSchemaEncoder(encoding.ModeTOML, &Search{})
	require.NoError(t, err)
	assert.Contains(t, e.GetFormatInstructions(), "topic = \"golang\"\nquery = \"what is golang\"\n")

	e, err = encoding.PredefinedSchemaEncoder(encoding.ModeJSON, Search{})
	require.NoError(t, err)
	assert.Contains(t, e.GetFormatInstructions(), `"description": "Topic of the search"`)

	e, err = encoding.PredefinedSchemaEncoder(encoding.ModePlainText, Search{})
	require.NoError(t, err)
	assert.Empty(t, e.GetFormatInstructions())

	_, err = encoding.PredefinedSchemaEncoder("xml", Search{})
	assert.EqualError(t, err, "no predefined encoder")
}

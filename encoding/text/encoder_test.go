package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named struct{}

func (named) String() string { return "named" }

func TestEncoder(t *testing.T) {
	enc := NewEncoder()
	assert.Empty(t, enc.GetFormatInstructions())

	bs, err := enc.Marshal(named{})
	require.NoError(t, err)
	assert.Equal(t, "named", string(bs))

	bs, err = enc.Marshal("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", string(bs))

	bs, err = enc.Marshal(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(bs))

	var s string
	require.NoError(t, enc.Unmarshal([]byte("  answer \n"), &s))
	assert.Equal(t, "answer", s)

	var m map[string]int
	require.NoError(t, enc.Unmarshal([]byte(`{"b":2}`), &m))
	assert.Equal(t, 2, m["b"])
}

package yaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type details struct {
	Location string `yaml:"location" jsonschema:"description=location" fake:"Tokyo"`
	Industry string `yaml:"industry" jsonschema:"description=industry" fake:"Software"`
}

type company struct {
	Name        string    `yaml:"name" comment:"Company name" jsonschema:"description=official name" fake:"Acme KK"`
	Employees   *int      `yaml:"employees" jsonschema:"description=Number of employees" fake:"120"`
	Details     *details  `yaml:"details" jsonschema:"description=Company details"`
	Competitors []details `yaml:"competitors" jsonschema:"description=Competitors of the company" fakesize:"1"`
	internal    string
}

func TestFormatInstructions_LineComment(t *testing.T) {
	enc := NewEncoder(company{}).WithCommentStyle(LineComment)
	exp := `
Respond with YAML in the following YAML schema without comments:
` + "```yaml" + `
name: Acme KK # Company name
employees: 120 # Number of employees
details: # Company details
    location: Tokyo # location
    industry: Software # industry
competitors: # Competitors of the company
    - location: Tokyo # location
      industry: Software # industry
` + "```" + `
Make sure to return an instance of the YAML, not the schema itself.
`
	assert.Equal(t, exp, enc.GetFormatInstructions())
}

func TestFormatInstructions_NoComment(t *testing.T) {
	enc := NewEncoder(&company{})
	s := enc.GetFormatInstructions()
	assert.Contains(t, s, "name: Acme KK\n")
	assert.NotContains(t, s, "#")
}

func TestMarshal_HeadComment(t *testing.T) {
	enc := NewEncoder(company{}).WithCommentStyle(HeadComment)
	bs, err := enc.Marshal(&company{Name: "Acme", internal: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(bs), "# Company name\nname: Acme\n")
	assert.Contains(t, string(bs), "employees: null")
	assert.NotContains(t, string(bs), "internal")

	_, err = enc.Marshal("not a struct")
	assert.EqualError(t, err, "expected struct, got string")
}

func TestUnmarshal(t *testing.T) {
	enc := NewEncoder(company{})
	var c company
	err := enc.Unmarshal([]byte("Here it is:\n```yaml\nname: Acme\nemployees: 3\n```"), &c)
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.Name)
	require.NotNil(t, c.Employees)
	assert.Equal(t, 3, *c.Employees)
}

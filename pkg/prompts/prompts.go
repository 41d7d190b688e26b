// Package prompts renders prompt templates in Go template or Jinja2 syntax.
package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
	"github.com/suckgeun/mcp-sample/pkg/llms"
)

// TemplateFormat is the syntax of a template
type TemplateFormat string

const (
	// FormatGoTemplate is text/template with the sprig functions
	FormatGoTemplate TemplateFormat = "go-template"
	// FormatJinja2 is Jinja2 syntax
	FormatJinja2 TemplateFormat = "jinja2"
)

// ErrMissingVariable is returned when a template input variable has no value.
var ErrMissingVariable = errors.New("missing template variable")

// PromptTemplate is a template with the list of required input variables.
type PromptTemplate struct {
	Template       string
	InputVariables []string
	Syntax         TemplateFormat
	// PartialVariables are the values used when an input does not provide them.
	PartialVariables map[string]any
}

// NewPromptTemplate returns a Go template prompt.
func NewPromptTemplate(tpl string, inputVariables []string) PromptTemplate {
	return PromptTemplate{
		Template:       tpl,
		InputVariables: inputVariables,
		Syntax:         FormatGoTemplate,
	}
}

// NewJinja2PromptTemplate returns a Jinja2 prompt.
func NewJinja2PromptTemplate(tpl string, inputVariables []string) PromptTemplate {
	return PromptTemplate{
		Template:       tpl,
		InputVariables: inputVariables,
		Syntax:         FormatJinja2,
	}
}

// WithPartial returns a copy of the template with the partial variable set.
func (p PromptTemplate) WithPartial(name string, value any) PromptTemplate {
	partials := make(map[string]any, len(p.PartialVariables)+1)
	for k, v := range p.PartialVariables {
		partials[k] = v
	}
	partials[name] = value
	p.PartialVariables = partials
	return p
}

// Format renders the template with the values merged over the partial variables.
func (p PromptTemplate) Format(values map[string]any) (string, error) {
	merged := make(map[string]any, len(p.PartialVariables)+len(values))
	for k, v := range p.PartialVariables {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}

	var missing []string
	for _, name := range p.InputVariables {
		if _, ok := merged[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", errors.Wrapf(ErrMissingVariable, "%s", strings.Join(missing, ", "))
	}
	return RenderTemplate(p.Template, p.Syntax, merged)
}

// FormatMessage renders the template as a message with the role.
func (p PromptTemplate) FormatMessage(role llms.Role, values map[string]any) (llms.Message, error) {
	text, err := p.Format(values)
	if err != nil {
		return llms.Message{}, err
	}
	return llms.MessageFromTextParts(role, text), nil
}

// RenderTemplate renders the template in the format.
func RenderTemplate(tpl string, format TemplateFormat, values map[string]any) (string, error) {
	switch format {
	case FormatGoTemplate, "":
		return renderGoTemplate(tpl, values)
	case FormatJinja2:
		return renderJinja2(tpl, values)
	}
	return "", errors.Newf("unsupported template format: %s", format)
}

func renderGoTemplate(tpl string, values map[string]any) (string, error) {
	t, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(tpl)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return buf.String(), nil
}

func renderJinja2(tpl string, values map[string]any) (string, error) {
	t, err := gonja.FromString(tpl)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}
	out, err := t.Execute(values)
	if err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return out, nil
}

package yaml

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/suckgeun/mcp-sample/pkg/llmutils"
	"github.com/suckgeun/mcp-sample/pkg/schema"
	"gopkg.in/yaml.v3"
)

var (
	validate      = validator.New()
	descriptionRe = regexp.MustCompile(`description=([^,]+)`)
)

// CommentStyle controls where field descriptions are written.
type CommentStyle int

const (
	NoComment CommentStyle = iota
	HeadComment
	LineComment
	FootComment
)

type Encoder struct {
	reqType      reflect.Type
	commentStyle CommentStyle
}

func NewEncoder(req any) *Encoder {
	t := reflect.TypeOf(req)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &Encoder{
		reqType:      t,
		commentStyle: NoComment,
	}
}

func (e *Encoder) WithCommentStyle(style CommentStyle) *Encoder {
	e.commentStyle = style
	return e
}

func (e *Encoder) Marshal(v any) ([]byte, error) {
	if e.commentStyle == NoComment {
		return yaml.Marshal(v)
	}
	node, err := e.toNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.BytesTrimBackticks(bs)
	return yaml.Unmarshal(data, ret)
}

func (e *Encoder) Validate(req any) error {
	return validate.Struct(req)
}

func (e *Encoder) GetFormatInstructions() string {
	v := reflect.New(e.reqType)
	instance := v.Interface()
	if f, ok := v.Elem().Interface().(schema.Faker); ok {
		instance = f.Fake()
	} else {
		_ = gofakeit.Struct(instance)
	}
	bs, err := e.Marshal(instance)
	if err != nil {
		return ""
	}
	var b bytes.Buffer
	b.WriteString("\nRespond with YAML in the following YAML schema without comments:\n")
	b.WriteString("```yaml\n")
	b.Write(bs)
	b.WriteString("```")
	b.WriteString("\nMake sure to return an instance of the YAML, not the schema itself.\n")
	return b.String()
}

// toNode converts a struct into a mapping node with field comments
func (e *Encoder) toNode(v any) (*yaml.Node, error) {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nullNode(), nil
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return nullNode(), nil
	}
	if val.Kind() != reflect.Struct {
		return nil, errors.Newf("expected struct, got %s", val.Kind())
	}

	typ := val.Type()
	root := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		key := fieldKey(field)
		if key == "" {
			continue
		}

		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		if comment := fieldComment(field); comment != "" {
			switch e.commentStyle {
			case HeadComment:
				keyNode.HeadComment = comment
			case LineComment:
				keyNode.LineComment = comment
			case FootComment:
				keyNode.FootComment = comment
			}
		}
		root.Content = append(root.Content, keyNode, e.valueNode(val.Field(i)))
	}
	return root, nil
}

func (e *Encoder) valueNode(v reflect.Value) *yaml.Node {
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nullNode()
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%d", v.Int()), Tag: "!!int"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%d", v.Uint()), Tag: "!!int"}
	case reflect.Float32, reflect.Float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%g", v.Float()), Tag: "!!float"}
	case reflect.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%t", v.Bool()), Tag: "!!bool"}
	case reflect.Map:
		node := &yaml.Node{Kind: yaml.MappingNode}
		iter := v.MapRange()
		for iter.Next() {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%v", iter.Key().Interface())},
				e.valueNode(iter.Value()))
		}
		return node
	case reflect.Struct:
		node, err := e.toNode(v.Interface())
		if err != nil {
			return nullNode()
		}
		return node
	case reflect.Slice, reflect.Array:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for i := 0; i < v.Len(); i++ {
			node.Content = append(node.Content, e.valueNode(v.Index(i)))
		}
		return node
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%v", v.Interface())}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: "null", Tag: "!!null"}
}

// fieldKey returns the yaml key, falling back to the json name
func fieldKey(f reflect.StructField) string {
	for _, tag := range []string{"yaml", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return ""
}

func fieldComment(f reflect.StructField) string {
	if c := f.Tag.Get("comment"); c != "" {
		return c
	}
	if m := descriptionRe.FindStringSubmatch(f.Tag.Get("jsonschema")); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// messageJSON is the stored form of a Message.
// A single text part is stored as Text, everything else as Parts.
type messageJSON struct {
	Role  Role              `json:"role"`
	Text  string            `json:"text,omitempty"`
	Parts []json.RawMessage `json:"parts,omitempty"`
}

type partTypeJSON struct {
	Type string `json:"type"`
}

type textContentJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolCallJSON struct {
	FunctionCall *FunctionCall `json:"function"`
	ID           string        `json:"id"`
	Type         string        `json:"type"`
}

type toolCallContentJSON struct {
	Type     string       `json:"type"`
	ToolCall toolCallJSON `json:"tool_call"`
}

type toolResponseJSON struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

type toolResponseContentJSON struct {
	Type         string           `json:"type"`
	ToolResponse toolResponseJSON `json:"tool_response"`
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok && tp.Text != "" {
			return json.Marshal(messageJSON{Role: m.Role, Text: tp.Text})
		}
	}

	js := messageJSON{
		Role:  m.Role,
		Parts: make([]json.RawMessage, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		js.Parts = append(js.Parts, raw)
	}
	return json.Marshal(js)
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var js messageJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	if js.Role == "" {
		return errors.Wrap(ErrUnexpectedRole, "missing role")
	}

	m.Role = js.Role
	m.Parts = nil
	if js.Text != "" {
		m.Parts = []ContentPart{TextContent{Text: js.Text}}
		return nil
	}

	for _, raw := range js.Parts {
		part, err := unmarshalContentPart(raw)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func unmarshalContentPart(raw json.RawMessage) (ContentPart, error) {
	var pt partTypeJSON
	if err := json.Unmarshal(raw, &pt); err != nil {
		return nil, err
	}
	switch pt.Type {
	case "text", "":
		var tc TextContent
		err := tc.UnmarshalJSON(raw)
		return tc, err
	case "tool_call":
		var tc ToolCall
		err := tc.UnmarshalJSON(raw)
		return tc, err
	case "tool_response":
		var tr ToolCallResponse
		err := tr.UnmarshalJSON(raw)
		return tr, err
	default:
		return nil, errors.Newf("unknown content type: '%s'", pt.Type)
	}
}

// MarshalJSON implements json.Marshaler for TextContent
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(textContentJSON{
		Type: "text",
		Text: tc.Text,
	})
}

// UnmarshalJSON implements json.Unmarshaler for TextContent
func (tc *TextContent) UnmarshalJSON(data []byte) error {
	var js textContentJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	if js.Type != "text" && js.Type != "" {
		return errors.Newf("invalid type for TextContent: %v", js.Type)
	}
	tc.Text = js.Text
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCall
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(toolCallContentJSON{
		Type: "tool_call",
		ToolCall: toolCallJSON{
			FunctionCall: tc.FunctionCall,
			ID:           tc.ID,
			Type:         tc.Type,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCall
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var js toolCallContentJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	if js.Type != "tool_call" {
		return errors.Newf("invalid type for ToolCall: %v", js.Type)
	}
	if js.ToolCall.ID == "" {
		return errors.New("missing id field in ToolCall")
	}
	if js.ToolCall.Type == "" {
		return errors.New("missing type field in ToolCall")
	}
	tc.ID = js.ToolCall.ID
	tc.Type = js.ToolCall.Type
	tc.FunctionCall = js.ToolCall.FunctionCall
	if tc.FunctionCall == nil {
		tc.FunctionCall = &FunctionCall{}
	}
	return nil
}

// MarshalJSON implements json.Marshaler for ToolCallResponse
func (tc ToolCallResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(toolResponseContentJSON{
		Type: "tool_response",
		ToolResponse: toolResponseJSON{
			ToolCallID: tc.ToolCallID,
			Name:       tc.Name,
			Content:    tc.Content,
		},
	})
}

// UnmarshalJSON implements json.Unmarshaler for ToolCallResponse
func (tc *ToolCallResponse) UnmarshalJSON(data []byte) error {
	var js toolResponseContentJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	if js.Type != "tool_response" {
		return errors.Newf("invalid type for ToolCallResponse: %v", js.Type)
	}
	if js.ToolResponse.ToolCallID == "" {
		return errors.New("missing tool_call_id field in ToolCallResponse")
	}
	if js.ToolResponse.Name == "" {
		return errors.New("missing name field in ToolCallResponse")
	}
	tc.ToolCallID = js.ToolResponse.ToolCallID
	tc.Name = js.ToolResponse.Name
	tc.Content = js.ToolResponse.Content
	return nil
}

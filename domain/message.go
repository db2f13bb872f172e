package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Message is a single turn of a conversation.
//
// Fields the client does not model are kept in Extra so that a message can be
// posted back without losing anything the server sent. When the server sent
// content as a list of parts, RawContent holds it and Content holds the text;
// the raw form is written back as long as Content was not edited. A numeric
// id is kept in RawID the same way, so it posts back as a number.
type Message struct {
	ID         string                     `json:"id"`
	RawID      json.RawMessage            `json:"-"`
	Type       string                     `json:"type,omitempty"`
	Role       string                     `json:"role,omitempty"`
	Content    string                     `json:"content"`
	Name       string                     `json:"name,omitempty"`
	RawContent json.RawMessage            `json:"-"`
	Extra      map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	out := Message{}
	for key, raw := range fields {
		var err error
		switch key {
		case "id":
			err = out.setID(raw)
		case "type":
			err = json.Unmarshal(raw, &out.Type)
		case "role":
			err = json.Unmarshal(raw, &out.Role)
		case "name":
			err = json.Unmarshal(raw, &out.Name)
		case "content":
			err = out.setContent(raw)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("failed to decode message field %q: %w", key, err)
		}
	}

	*m = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.RawID != nil {
		if id, err := scalarString(m.RawID); err == nil && id == m.ID {
			out["id"] = m.RawID
		} else {
			out["id"] = m.ID
		}
	} else {
		out["id"] = m.ID
	}
	if m.Type != "" {
		out["type"] = m.Type
	}
	if m.Role != "" {
		out["role"] = m.Role
	}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.RawContent != nil && contentText(m.RawContent) == m.Content {
		out["content"] = m.RawContent
	} else {
		out["content"] = m.Content
	}
	return json.Marshal(out)
}

func (m *Message) setID(raw json.RawMessage) error {
	id, err := scalarString(raw)
	if err != nil {
		return err
	}
	m.ID = id
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] != '"' && id != "" {
		m.RawID = append(json.RawMessage(nil), trimmed...)
	}
	return nil
}

func (m *Message) setContent(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		return json.Unmarshal(trimmed, &m.Content)
	default:
		m.RawContent = append(json.RawMessage(nil), trimmed...)
		m.Content = contentText(trimmed)
		return nil
	}
}

// contentText extracts the text of a content value that is either a string or
// a list of parts ("text" parts and bare strings).
func contentText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var parts []interface{}
	if json.Unmarshal(raw, &parts) != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case map[string]interface{}:
			if text, ok := v["text"].(string); ok {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}

// scalarString decodes a JSON string or number into its string form.
func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

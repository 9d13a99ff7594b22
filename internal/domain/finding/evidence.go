package finding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field is one key/value pair of Evidence
type Field struct {
	Key   string
	Value any
}

// Evidence is an insertion-ordered mapping of string keys to values.
// It is immutable from the outside: With returns a new value.
type Evidence struct {
	fields []Field
}

// NewEvidence returns empty evidence
func NewEvidence() Evidence {
	return Evidence{}
}

// With returns a copy of e with key set to value. Existing keys keep their position.
func (e Evidence) With(key string, value any) Evidence {
	fields := make([]Field, len(e.fields), len(e.fields)+1)
	copy(fields, e.fields)
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = value
			return Evidence{fields: fields}
		}
	}
	return Evidence{fields: append(fields, Field{Key: key, Value: value})}
}

// Get returns the value stored under key.
func (e Evidence) Get(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under key formatted with %v, or "" when absent.
func (e Evidence) String(key string) string {
	v, ok := e.Get(key)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Keys returns keys in insertion order
func (e Evidence) Keys() []string {
	keys := make([]string, len(e.fields))
	for i, f := range e.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the ordered pairs.
func (e Evidence) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

func (e Evidence) Len() int {
	return len(e.fields)
}

// MarshalJSON writes the pairs as a JSON object in insertion order.
func (e Evidence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal evidence %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the key order of the document.
func (e *Evidence) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = Evidence{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("evidence must be a JSON object, got %v", tok)
	}

	out := Evidence{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("evidence key must be a string, got %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode evidence %q: %w", key, err)
		}
		out = out.With(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

// MarshalYAML emits a mapping node in insertion order.
func (e Evidence) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range e.fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}
		val := &yaml.Node{}
		if err := val.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("marshal evidence %q: %w", f.Key, err)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping node, keeping document order.
func (e *Evidence) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("evidence must be a mapping, got kind %d", node.Kind)
	}
	out := Evidence{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("decode evidence %q: %w", node.Content[i].Value, err)
		}
		out = out.With(node.Content[i].Value, value)
	}
	*e = out
	return nil
}

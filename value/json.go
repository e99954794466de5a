package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MarshalJSON encodes v. Object members are written in sorted key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.obj.encode(buf)
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// MarshalJSON encodes m as a JSON object with sorted keys.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m Map) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := m[k].encode(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes any JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := Decode(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// UnmarshalJSON decodes a JSON object into m.
func (m *Map) UnmarshalJSON(data []byte) error {
	out, err := DecodeMap(data)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Decode parses a single JSON document. Numbers keep their source text.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("unexpected data after JSON document")
	}
	return fromDecoded(raw), nil
}

// DecodeMap parses a JSON object.
func DecodeMap(data []byte) (Map, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if v.kind != KindObject {
		return nil, fmt.Errorf("expected JSON object, got %s", v.kind)
	}
	return v.obj, nil
}

// fromDecoded converts encoding/json output produced with UseNumber. It cannot
// fail because the decoder only yields JSON-shaped data.
func fromDecoded(raw any) Value {
	switch x := raw.(type) {
	case bool:
		return Bool(x)
	case json.Number:
		return Value{kind: KindNumber, s: string(x)}
	case string:
		return String(x)
	case []any:
		list := make([]Value, len(x))
		for i, item := range x {
			list[i] = fromDecoded(item)
		}
		return Value{kind: KindList, list: list}
	case map[string]any:
		obj := make(Map, len(x))
		for k, item := range x {
			obj[k] = fromDecoded(item)
		}
		return Value{kind: KindObject, obj: obj}
	default:
		return Null()
	}
}

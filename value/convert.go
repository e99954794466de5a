package value

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"
)

// MaxDepth bounds how deeply nested input may be. Deeper input (including
// cyclic maps and slices) is rejected.
const MaxDepth = 64

// ErrUnsupported is matched by every conversion failure.
var ErrUnsupported = errors.New("value has no JSON representation")

// UnsupportedError describes the first value that could not be converted.
type UnsupportedError struct {
	// Path locates the value, e.g. `$.ctx.items[2]`.
	Path string
	// Type is the Go type of the offending value.
	Type string
	// Reason is set when the type is supported but the particular value is not.
	Reason string
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("value at %s (%s): %s", e.Path, e.Type, e.Reason)
	}
	return fmt.Sprintf("value at %s: unsupported type %s", e.Path, e.Type)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Of converts plain Go data into a Value.
//
// Accepted: nil, bool, string, every integer and finite float kind,
// json.Number, Value, Map, slices and arrays of accepted values ([]byte becomes
// a base64 string as encoding/json does), maps keyed by strings, pointers to
// accepted values, and any type implementing json.Marshaler or
// encoding.TextMarshaler. Strings and keys must be valid UTF-8. Everything else
// fails with *UnsupportedError.
func Of(v any) (Value, error) {
	return convert(v, "$", 0)
}

// MapOf converts a map of plain Go data into a Map. A nil input yields an empty
// Map.
func MapOf(m map[string]any) (Map, error) {
	out := make(Map, len(m))
	for k, raw := range m {
		if err := checkKey(k, "$"); err != nil {
			return nil, err
		}
		v, err := convert(raw, childPath("$", k), 1)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// MustMap is MapOf for literals known to be valid. It panics on failure.
func MustMap(m map[string]any) Map {
	out, err := MapOf(m)
	if err != nil {
		panic(err)
	}
	return out
}

func convert(v any, path string, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, &UnsupportedError{Path: path, Type: fmt.Sprintf("%T", v), Reason: "nesting too deep"}
	}

	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		if err := checkValue(x, path); err != nil {
			return Value{}, err
		}
		return x, nil
	case Map:
		obj := Object(x)
		if err := checkValue(obj, path); err != nil {
			return Value{}, err
		}
		return obj, nil
	case bool:
		return Bool(x), nil
	case string:
		return stringValue(x, path, "string")
	case json.Number:
		return numberText(string(x), path)
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case int32:
		return Int(int64(x)), nil
	case uint64:
		return Value{kind: KindNumber, s: strconv.FormatUint(x, 10)}, nil
	case float64:
		return floatValue(x, 64, path)
	case float32:
		return floatValue(float64(x), 32, path)
	case map[string]any:
		obj := make(Map, len(x))
		for k, item := range x {
			if err := checkKey(k, path); err != nil {
				return Value{}, err
			}
			cv, err := convert(item, childPath(path, k), depth+1)
			if err != nil {
				return Value{}, err
			}
			obj[k] = cv
		}
		return Value{kind: KindObject, obj: obj}, nil
	case []any:
		list := make([]Value, len(x))
		for i, item := range x {
			cv, err := convert(item, indexPath(path, i), depth+1)
			if err != nil {
				return Value{}, err
			}
			list[i] = cv
		}
		return Value{kind: KindList, list: list}, nil
	}

	return convertReflect(reflect.ValueOf(v), path, depth)
}

func convertReflect(rv reflect.Value, path string, depth int) (Value, error) {
	t := rv.Type()

	if t.Implements(jsonMarshalerType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null(), nil
		}
		data, err := rv.Interface().(json.Marshaler).MarshalJSON()
		if err != nil {
			return Value{}, &UnsupportedError{Path: path, Type: t.String(), Reason: err.Error()}
		}
		out, err := Decode(data)
		if err != nil {
			return Value{}, &UnsupportedError{Path: path, Type: t.String(), Reason: err.Error()}
		}
		return out, nil
	}
	if t.Implements(textMarshalerType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Null(), nil
		}
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return Value{}, &UnsupportedError{Path: path, Type: t.String(), Reason: err.Error()}
		}
		return stringValue(string(text), path, t.String())
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return stringValue(rv.String(), path, t.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{kind: KindNumber, s: strconv.FormatUint(rv.Uint(), 10)}, nil
	case reflect.Float32:
		return floatValue(rv.Float(), 32, path)
	case reflect.Float64:
		return floatValue(rv.Float(), 64, path)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return convert(rv.Elem().Interface(), path, depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return Null(), nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return String(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
		return convertSequence(rv, path, depth)
	case reflect.Array:
		return convertSequence(rv, path, depth)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Value{}, &UnsupportedError{Path: path, Type: t.String(), Reason: "map keys must be strings"}
		}
		if rv.IsNil() {
			return Null(), nil
		}
		obj := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if err := checkKey(k, path); err != nil {
				return Value{}, err
			}
			cv, err := convert(iter.Value().Interface(), childPath(path, k), depth+1)
			if err != nil {
				return Value{}, err
			}
			obj[k] = cv
		}
		return Value{kind: KindObject, obj: obj}, nil
	}

	return Value{}, &UnsupportedError{Path: path, Type: t.String()}
}

func convertSequence(rv reflect.Value, path string, depth int) (Value, error) {
	list := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		cv, err := convert(rv.Index(i).Interface(), indexPath(path, i), depth+1)
		if err != nil {
			return Value{}, err
		}
		list[i] = cv
	}
	return Value{kind: KindList, list: list}, nil
}

func stringValue(s, path, typ string) (Value, error) {
	if !utf8.ValidString(s) {
		return Value{}, &UnsupportedError{Path: path, Type: typ, Reason: "invalid UTF-8"}
	}
	return String(s), nil
}

func checkKey(k, path string) error {
	if !utf8.ValidString(k) {
		return &UnsupportedError{Path: path, Type: "string", Reason: "invalid UTF-8 in key " + strconv.Quote(k)}
	}
	return nil
}

// checkValue walks a Value built outside Of, since String accepts any bytes.
func checkValue(v Value, path string) error {
	switch v.kind {
	case KindString:
		if !utf8.ValidString(v.s) {
			return &UnsupportedError{Path: path, Type: "value.Value", Reason: "invalid UTF-8"}
		}
	case KindList:
		for i, item := range v.list {
			if err := checkValue(item, indexPath(path, i)); err != nil {
				return err
			}
		}
	case KindObject:
		for k, item := range v.obj {
			if err := checkKey(k, path); err != nil {
				return err
			}
			if err := checkValue(item, childPath(path, k)); err != nil {
				return err
			}
		}
	}
	return nil
}

func floatValue(f float64, bits int, path string) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, &UnsupportedError{Path: path, Type: "float" + strconv.Itoa(bits), Reason: "non-finite number"}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return Int(int64(f)), nil
	}
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, bits)}, nil
}

func numberText(s string, path string) (Value, error) {
	if s == "" || !(s[0] == '-' || (s[0] >= '0' && s[0] <= '9')) || !json.Valid([]byte(s)) {
		return Value{}, &UnsupportedError{Path: path, Type: "json.Number", Reason: fmt.Sprintf("invalid number %q", s)}
	}
	return Value{kind: KindNumber, s: s}, nil
}

func childPath(parent, key string) string {
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

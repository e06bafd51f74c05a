package completion

import (
	"encoding/json"
	"reflect"
	"strings"

	"onboarding/api/internal/catalog"
)

// Kind is the runtime shape of a stored field value.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindList
	KindObject
	KindLookup
)

var kindNames = [...]string{"absent", "string", "number", "boolean", "list", "object", "lookup"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a classified field value. Only the attribute relevant to Kind
// is populated: Text for strings, Len for lists, objects and lookups.
type Value struct {
	Kind Kind
	Text string
	Len  int
}

// ValueOf classifies a decoded value by its runtime shape. Maps carrying
// a "label" or "value" key are lookups; other maps and structs are
// objects. Pointers and interfaces are followed.
func ValueOf(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindAbsent}
	case string:
		return Value{Kind: KindString, Text: v}
	case bool:
		return Value{Kind: KindBoolean}
	case json.Number:
		return Value{Kind: KindNumber}
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return Value{Kind: KindAbsent}
		}
		return ValueOf(decoded)
	case []any:
		return Value{Kind: KindList, Len: len(v)}
	case map[string]any:
		return mapValue(len(v), hasLookupKey(v))
	}
	return reflectValue(reflect.ValueOf(raw))
}

func reflectValue(rv reflect.Value) Value {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Value{Kind: KindAbsent}
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return Value{Kind: KindString, Text: rv.String()}
	case reflect.Bool:
		return Value{Kind: KindBoolean}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return Value{Kind: KindNumber}
	case reflect.Slice:
		if rv.IsNil() {
			return Value{Kind: KindAbsent}
		}
		return Value{Kind: KindList, Len: rv.Len()}
	case reflect.Array:
		return Value{Kind: KindList, Len: rv.Len()}
	case reflect.Map:
		if rv.IsNil() {
			return Value{Kind: KindAbsent}
		}
		lookup := false
		if rv.Type().Key().Kind() == reflect.String {
			for _, key := range rv.MapKeys() {
				if name := key.String(); name == "label" || name == "value" {
					lookup = true
					break
				}
			}
		}
		return mapValue(rv.Len(), lookup)
	case reflect.Struct:
		exported := 0
		for i := 0; i < rv.NumField(); i++ {
			if rv.Type().Field(i).IsExported() {
				exported++
			}
		}
		return Value{Kind: KindObject, Len: exported}
	}
	return Value{Kind: KindAbsent}
}

func mapValue(keys int, lookup bool) Value {
	if lookup {
		return Value{Kind: KindLookup, Len: keys}
	}
	return Value{Kind: KindObject, Len: keys}
}

func hasLookupKey(m map[string]any) bool {
	_, label := m["label"]
	_, value := m["value"]
	return label || value
}

var missingByKind = map[Kind]func(Value) bool{
	KindAbsent:  func(Value) bool { return true },
	KindString:  func(v Value) bool { return strings.TrimSpace(v.Text) == "" },
	KindNumber:  func(Value) bool { return false },
	KindBoolean: func(Value) bool { return false },
	KindList:    func(v Value) bool { return v.Len == 0 },
	KindObject:  func(v Value) bool { return v.Len == 0 },
	KindLookup:  func(v Value) bool { return v.Len == 0 },
}

// Missing reports whether the value counts as not provided. Zero numbers
// and false are provided answers.
func (v Value) Missing() bool {
	classify, ok := missingByKind[v.Kind]
	if !ok {
		return true
	}
	return classify(v)
}

// IsMissing classifies raw by shape. The declared field type does not
// take part.
func IsMissing(_ catalog.FieldDefinition, raw any) bool {
	return ValueOf(raw).Missing()
}

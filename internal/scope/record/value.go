// Package record provides the JSON-like value type used for portal content records.
package record

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Value is an immutable JSON-like value.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *object
}

// object keeps keys in insertion order
type object struct {
	keys   []string
	values map[string]Value
}

// Field is a key/value pair used to build objects
type Field struct {
	Key   string
	Value Value
}

// Null returns the null value
func Null() Value { return Value{} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array holding the given items
func Array(items ...Value) Value {
	arr := make([]Value, len(items))
	copy(arr, items)
	return Value{kind: KindArray, arr: arr}
}

// F is shorthand for building a Field
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

// Object returns an object with the given fields in order.
// A repeated key keeps its first position and its last value.
func Object(fields ...Field) Value {
	o := &object{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		o.set(f.Key, f.Value)
	}
	return Value{kind: KindObject, obj: o}
}

func (o *object) set(key string, v Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *object) clone() *object {
	c := &object{
		keys:   make([]string, len(o.keys), len(o.keys)+1),
		values: make(map[string]Value, len(o.values)+1),
	}
	copy(c.keys, o.keys)
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

// Kind reports the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content and whether v is a string
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Num returns the numeric content and whether v is a number
func (v Value) Num() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

// BoolValue returns the boolean content and whether v is a bool
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Truthy reports whether v counts as set: null, false, zero, NaN and the
// empty string do not; arrays and objects always do
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	default:
		return true
	}
}

// Items returns the elements of an array, or nil for any other kind.
// The returned slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Len returns the number of elements of an array or keys of an object
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj.keys)
	default:
		return 0
	}
}

// Get returns the value stored under key when v is an object
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	val, ok := v.obj.values[key]
	return val, ok
}

// GetString returns the string stored under key, or "" if absent or not a string
func (v Value) GetString(key string) string {
	val, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := val.Str()
	return s
}

// Keys returns the object keys in order
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, len(v.obj.keys))
	copy(keys, v.obj.keys)
	return keys
}

// Range calls fn for each object entry in order until fn returns false
func (v Value) Range(fn func(key string, val Value) bool) {
	if v.kind != KindObject {
		return
	}
	for _, k := range v.obj.keys {
		if !fn(k, v.obj.values[k]) {
			return
		}
	}
}

// With returns a copy of the object with key set to val.
// Non-object values are replaced by a single-field object.
func (v Value) With(key string, val Value) Value {
	if v.kind != KindObject {
		return Object(F(key, val))
	}
	o := v.obj.clone()
	o.set(key, val)
	return Value{kind: KindObject, obj: o}
}

// Without returns a copy of the object with the given keys removed
func (v Value) Without(keys ...string) Value {
	if v.kind != KindObject {
		return v
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	fields := make([]Field, 0, len(v.obj.keys))
	for _, k := range v.obj.keys {
		if _, skip := drop[k]; skip {
			continue
		}
		fields = append(fields, F(k, v.obj.values[k]))
	}
	return Object(fields...)
}

// Merge returns a copy of v with every entry of other set on top
func (v Value) Merge(other Value) Value {
	if other.kind != KindObject {
		return v
	}
	var o *object
	if v.kind == KindObject {
		o = v.obj.clone()
	} else {
		o = &object{values: make(map[string]Value, other.Len())}
	}
	for _, k := range other.obj.keys {
		o.set(k, other.obj.values[k])
	}
	return Value{kind: KindObject, obj: o}
}

// Equal reports deep equality. Object key order is ignored.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj.keys) != len(other.obj.keys) {
			return false
		}
		for k, val := range v.obj.values {
			ov, ok := other.obj.values[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders scalars as text and composites as JSON
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString:
		return v.s
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprintf("<%s>", v.kind)
		}
		return string(data)
	}
}

// Package tree defines the dynamically shaped value produced by document parsers.
//
// A Value is a closed set of variants (null, boolean, number, string, array, object).
// Objects keep the insertion order of their keys. Values are immutable once built:
// accessors hand out copies, so a parsed tree can be shared read-only between the
// resolver and the normalizer.
package tree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
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
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Number keeps the literal text of a numeric value to avoid precision loss.
type Number = json.Number

// Value is a single node of a parsed document tree.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string payload, or number literal
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Num wraps a number literal.
func Num(n Number) Value { return Value{kind: KindNumber, s: n.String()} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(i, 10)} }

// Float wraps a floating point number.
func Float(f float64) Value {
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps an ordered sequence of values.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

// Obj builds an object value from members, in order.
func Obj(members ...Member) Value {
	return FromObject(NewObject(members...))
}

// FromObject wraps an existing object.
func FromObject(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsNumber returns the number literal.
func (v Value) AsNumber() (Number, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return Number(v.s), true
}

// AsArray returns a copy of the array items.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp, true
}

// Len returns the number of items of an array, members of an object, or zero.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	default:
		return 0
	}
}

// Index returns the i-th item of an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// AsObject returns the object payload.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// IsScalar reports whether v is a string, number or boolean.
func (v Value) IsScalar() bool {
	return v.kind == KindBool || v.kind == KindNumber || v.kind == KindString
}

// Any converts v back into plain Go values (map[string]any, []any, string,
// json.Number, bool, nil). Object key order is lost.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		v.obj.Range(func(k string, item Value) bool {
			out[k] = item.Any()
			return true
		})
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v as JSON, preserving object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return []byte(v.s), nil
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		buf := []byte{'['}
		for i, item := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b...)
		}
		return append(buf, ']'), nil
	case KindObject:
		return v.obj.MarshalJSON()
	default:
		return nil, fmt.Errorf("tree: unknown kind %d", v.kind)
	}
}

func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<invalid>"
	}
	return string(b)
}

// FromAny converts decoded Go values into a Value.
// Maps without an intrinsic order get their keys sorted so the result is deterministic.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Num(t), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		return Value{kind: KindNumber, s: strconv.FormatUint(t, 10)}, nil
	case uint32:
		return Int(int64(t)), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return Value{kind: KindArray, arr: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			obj.set(k, v)
		}
		return FromObject(obj), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// Equal reports whether a and b are structurally equal.
// Object comparison ignores key order; number comparison is by literal text.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber, KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		equal := true
		a.obj.Range(func(k string, av Value) bool {
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(av, bv) {
				equal = false
				return false
			}
			return true
		})
		return equal
	}
	return false
}

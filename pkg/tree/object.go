package tree

import "encoding/json"

// Member is a single key/value pair used to build objects.
type Member struct {
	Key   string
	Value Value
}

// M is shorthand for building a Member.
func M(key string, v Value) Member { return Member{Key: key, Value: v} }

// Object is an insertion-ordered mapping of string keys to values.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject builds an object from members. A repeated key keeps the position of
// its first occurrence and the value of its last.
func NewObject(members ...Member) *Object {
	o := &Object{values: make(map[string]Value, len(members))}
	for _, m := range members {
		o.set(m.Key, m.Value)
	}
	return o
}

func (o *Object) set(key string, v Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	cp := make([]string, len(o.keys))
	copy(cp, o.keys)
	return cp
}

// Len returns the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Range calls fn for every member in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// Without returns a copy of o lacking the given keys.
func (o *Object) Without(keys ...string) *Object {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	out := NewObject()
	o.Range(func(k string, v Value) bool {
		if !skip[k] {
			out.set(k, v)
		}
		return true
	})
	return out
}

// MarshalJSON renders the object preserving key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	first := true
	var err error
	o.Range(func(k string, v Value) bool {
		if !first {
			buf = append(buf, ',')
		}
		first = false
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = v.MarshalJSON(); err != nil {
			return false
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return append(buf, '}'), nil
}

package runtime

import (
	"bytes"
	"strings"
)

// List is a mutable, growable sequence of values.
type List struct {
	Elements []Value
}

// NewList creates a List from the given elements.
func NewList(elements []Value) *List {
	return &List{Elements: elements}
}

func (l *List) Kind() Kind { return ListKind }
func (l *List) String() string {
	elems := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		elems[i] = Inspect(e)
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.Elements) }

// Tuple is an immutable fixed-arity sequence of values.
type Tuple struct {
	Elements []Value
}

// NewTuple creates a Tuple from the given elements.
func NewTuple(elements []Value) *Tuple {
	return &Tuple{Elements: elements}
}

func (t *Tuple) Kind() Kind { return TupleKind }
func (t *Tuple) String() string {
	elems := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		elems[i] = Inspect(e)
	}
	if len(elems) == 1 {
		return "(" + elems[0] + ",)"
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

// Len returns the tuple arity.
func (t *Tuple) Len() int { return len(t.Elements) }

// Array is a fixed-length sequence of values. Unlike List it cannot
// grow; elements are assignable in place.
type Array struct {
	Elements []Value
}

// NewArray creates an Array of the given length, filled with null.
func NewArray(length int) *Array {
	elements := make([]Value, length)
	for i := range elements {
		elements[i] = TheNull
	}
	return &Array{Elements: elements}
}

func (a *Array) Kind() Kind { return ArrayKind }
func (a *Array) String() string {
	elems := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elems[i] = Inspect(e)
	}
	return "array[" + strings.Join(elems, ", ") + "]"
}

// Len returns the array length.
func (a *Array) Len() int { return len(a.Elements) }

// Dict is a string-keyed mapping that preserves insertion order.
type Dict struct {
	keys  []string
	items map[string]Value
}

// NewDict creates an empty Dict.
func NewDict() *Dict {
	return &Dict{items: make(map[string]Value)}
}

func (d *Dict) Kind() Kind { return DictKind }
func (d *Dict) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	for i, k := range d.keys {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k + ": " + Inspect(d.items[k]))
	}
	out.WriteString("}")
	return out.String()
}

// Get returns the value for key, or nil and false when absent.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.items[key]
	return v, ok
}

// Set stores key = value, appending to the key order on first insert.
func (d *Dict) Set(key string, value Value) {
	if _, exists := d.items[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.items[key] = value
}

// Delete removes a key. Returns true when the key existed.
func (d *Dict) Delete(key string) bool {
	if _, exists := d.items[key]; !exists {
		return false
	}
	delete(d.items, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string { return d.keys }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Range represents a lazily-evaluated arithmetic sequence produced by
// range(start, end, step). The end bound is exclusive.
type Range struct {
	Start float64
	End   float64
	Step  float64
}

func (r *Range) Kind() Kind { return RangeKind }
func (r *Range) String() string {
	elems := make([]string, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		elems = append(elems, (&Number{Value: r.At(i)}).String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Len returns the number of values the range produces.
func (r *Range) Len() int {
	if r.Step == 0 {
		return 0
	}
	span := (r.End - r.Start) / r.Step
	if span <= 0 {
		return 0
	}
	n := int(span)
	if float64(n) < span {
		n++
	}
	return n
}

// At returns the ith value of the range.
func (r *Range) At(i int) float64 {
	return r.Start + float64(i)*r.Step
}

// Object is a generic member bag with insertion-ordered fields. Native
// modules bind their exports as Object members; member access uses the
// inline-cache path.
type Object struct {
	Name   string // optional display name (e.g. module name)
	fields *Dict
}

// NewObject creates an empty object with an optional display name.
func NewObject(name string) *Object {
	return &Object{Name: name, fields: NewDict()}
}

func (o *Object) Kind() Kind { return ObjectKind }
func (o *Object) String() string {
	if o.Name != "" {
		return "<object " + o.Name + ">"
	}
	return "<object>"
}

// GetMember returns the named member, or nil and false when absent.
func (o *Object) GetMember(name string) (Value, bool) {
	return o.fields.Get(name)
}

// SetMember stores a member.
func (o *Object) SetMember(name string, value Value) {
	o.fields.Set(name, value)
}

// Members returns the member names in insertion order.
func (o *Object) Members() []string { return o.fields.Keys() }

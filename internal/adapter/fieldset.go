package adapter

import "encoding/json"

// Field is a single hidden form input.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FieldSet is an insertion-ordered set of form fields.
type FieldSet struct {
	fields []Field
	index  map[string]int
}

// NewFieldSet creates an empty field set.
func NewFieldSet() *FieldSet {
	return &FieldSet{index: make(map[string]int)}
}

// Set adds name or replaces its value in place.
func (f *FieldSet) Set(name, value string) {
	if i, ok := f.index[name]; ok {
		f.fields[i].Value = value
		return
	}
	f.index[name] = len(f.fields)
	f.fields = append(f.fields, Field{Name: name, Value: value})
}

// SetIfNotEmpty adds name only when value is non-empty.
func (f *FieldSet) SetIfNotEmpty(name, value string) {
	if value != "" {
		f.Set(name, value)
	}
}

// Get returns the value for name.
func (f *FieldSet) Get(name string) (string, bool) {
	i, ok := f.index[name]
	if !ok {
		return "", false
	}
	return f.fields[i].Value, true
}

// Fields returns a copy of the fields in insertion order.
func (f *FieldSet) Fields() []Field {
	out := make([]Field, len(f.fields))
	copy(out, f.fields)
	return out
}

// Names returns the field names in insertion order.
func (f *FieldSet) Names() []string {
	out := make([]string, len(f.fields))
	for i, fl := range f.fields {
		out[i] = fl.Name
	}
	return out
}

// Len returns the number of fields.
func (f *FieldSet) Len() int {
	return len(f.fields)
}

// MarshalJSON encodes the set as an ordered array of {name, value}.
func (f *FieldSet) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Fields())
}

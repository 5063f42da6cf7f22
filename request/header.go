package request

import "strings"

// Field is a single header name/value pair.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of fields with case-insensitive lookup.
// Insertion order and duplicate names are preserved, which matters for
// headers like Set-Cookie where collapsing values changes semantics.
type Header struct {
	fields []Field
}

// Add appends a field, keeping any existing fields with the same name.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the first value whose name matches case-insensitively,
// or "" if the header is absent.
func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value recorded under name, in insertion order.
func (h *Header) Values(name string) []string {
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Fields returns the underlying ordered field list.
func (h *Header) Fields() []Field {
	return h.fields
}

// Len reports the number of fields.
func (h *Header) Len() int {
	return len(h.fields)
}

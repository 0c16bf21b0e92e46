package api

import "maps"

type (
	// Data is a string-keyed map of free-form values shared between steps
	Data map[string]any

	// Metadata carries descriptive key/value annotations on model entities
	Metadata map[string]any
)

// Clone returns a shallow copy of the data map. A nil receiver yields an
// empty, writable map
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	return maps.Clone(d)
}

// Clone returns a shallow copy of the metadata map. A nil receiver yields an
// empty, writable map
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identifiable is implemented by records that can be the target of a Reference.
type Identifiable interface {
	RefID() string
}

// Reference points at another record. It is either unresolved (only the id is
// known) or resolved (the full record is embedded). On the wire it is a JSON
// string in the first case and an object in the second.
type Reference[T Identifiable] struct {
	id    string
	value *T
}

// Unresolved returns a reference that only carries the target id.
func Unresolved[T Identifiable](id string) Reference[T] {
	return Reference[T]{id: id}
}

// Resolved returns a reference carrying the full target record.
func Resolved[T Identifiable](v T) Reference[T] {
	return Reference[T]{id: v.RefID(), value: &v}
}

// ID returns the target id for both shapes.
func (r Reference[T]) ID() string {
	return r.id
}

// IsResolved reports whether the target record is embedded.
func (r Reference[T]) IsResolved() bool {
	return r.value != nil
}

// Value returns the embedded record, if any.
func (r Reference[T]) Value() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

// Unresolve drops the embedded record and keeps only the id.
func (r Reference[T]) Unresolve() Reference[T] {
	return Reference[T]{id: r.id}
}

// MarshalJSON implements json.Marshaler.
func (r Reference[T]) MarshalJSON() ([]byte, error) {
	if r.value != nil {
		return json.Marshal(r.value)
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reference[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = Reference[T]{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("failed to decode reference id: %w", err)
		}
		*r = Unresolved[T](id)
	case '{':
		var v T
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return fmt.Errorf("failed to decode referenced record: %w", err)
		}
		*r = Resolved(v)
	default:
		return fmt.Errorf("reference must be a string id or an object, got %s", trimmed)
	}

	return nil
}

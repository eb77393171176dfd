package fmp4

import "encoding/json"

// Optional holds a value that may be absent. The zero value is absent.
type Optional[T any] struct {
	v  T
	ok bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{v: v, ok: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.v, o.ok }

// Valid reports whether the value is present.
func (o Optional[T]) Valid() bool { return o.ok }

// Or returns the value if present, def otherwise.
func (o Optional[T]) Or(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// MarshalJSON encodes the value, or null when absent.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

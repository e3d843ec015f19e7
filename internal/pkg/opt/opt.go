// Package opt distinguishes "field absent" from "field set to its zero value"
// in partial-update requests.
package opt

import (
	"bytes"
	"encoding/json"
)

type Value[T any] struct {
	v   T
	set bool
}

func Some[T any](v T) Value[T] { return Value[T]{v: v, set: true} }

func None[T any]() Value[T] { return Value[T]{} }

func (o Value[T]) IsSet() bool { return o.set }

func (o Value[T]) Get() (T, bool) { return o.v, o.set }

// Or returns the held value, or def when absent.
func (o Value[T]) Or(def T) T {
	if o.set {
		return o.v
	}
	return def
}

// UnmarshalJSON treats an explicit null the same as a missing key.
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Value[T]{v: v, set: true}
	return nil
}

func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

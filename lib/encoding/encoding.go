// Package encoding serialises history state.
//
// pushState and replaceState store a structured clone of the state, not a
// reference: later mutation of the caller's value must not leak into the
// history entry, and every read hands out a fresh copy. State is kept as
// msgpack bytes, which gives both properties.
package encoding

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrInvalidFormat is returned when stored state cannot be decoded.
var ErrInvalidFormat = errors.New("encoding: invalid state format")

// Encode serialises v. A nil v encodes to nil.
func Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal state: %w", err)
	}
	return data, nil
}

// Decode deserialises data into v.
func Decode(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

// Clone returns a deep copy of v made by a msgpack round trip.
// A nil pointer clones to nil.
func Clone[T any](v *T) (*T, error) {
	if v == nil {
		return nil, nil
	}
	data, err := Encode(v)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := Decode(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

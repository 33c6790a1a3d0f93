package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result carries either a success value or an error text.
// The zero value is an Err with an empty message.
type Result[T any] struct {
	Value T
	Error string
	ok    bool
}

// Ok builds a successful Result
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value, ok: true}
}

// Err builds a failed Result
func Err[T any](message string) Result[T] {
	return Result[T]{Error: message}
}

// IsOk reports whether the result holds a value
func (r Result[T]) IsOk() bool {
	return r.ok
}

// MarshalJSON encodes as {"Ok": value} or {"Err": "message"}
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(map[string]T{"Ok": r.Value})
	}
	return json.Marshal(map[string]string{"Err": r.Error})
}

// UnmarshalJSON accepts exactly one of the Ok or Err keys
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != 1 {
		return fmt.Errorf("result: expected exactly one of Ok or Err, got %d keys", len(fields))
	}
	if raw, ok := fields["Ok"]; ok {
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("result: while decoding Ok value: %w", err)
		}
		*r = Ok(value)
		return nil
	}
	if raw, ok := fields["Err"]; ok {
		var message string
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return fmt.Errorf("result: Err must be a string")
		}
		if err := json.Unmarshal(raw, &message); err != nil {
			return fmt.Errorf("result: while decoding Err text: %w", err)
		}
		*r = Err[T](message)
		return nil
	}
	return fmt.Errorf("result: expected Ok or Err")
}

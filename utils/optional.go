package utils

import "encoding/json"

// Optional distinguishes a JSON field that was omitted from one sent as null.
// Omitted means "leave unchanged"; an explicit null means "clear it". Plain
// pointer fields cannot tell the two apart.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

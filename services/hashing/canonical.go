package hashing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonical serializes v as compact JSON with object keys sorted at every
// depth. Values that cannot be encoded fall back to their fmt.Sprint form.
func Canonical(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	// round trip through generic values so struct field order does not leak
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return fmt.Sprint(v)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return fmt.Sprint(v)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

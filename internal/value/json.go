package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseJSON decodes a JSON document into a Value tree. Numbers with no
// fractional part and no exponent decode as Int; everything else numeric
// decodes as Double.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return fromInterface(raw)
}

func fromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return String(""), fmt.Errorf("%w: null is not a supported document value", ErrTypeMismatch)
	case bool:
		return Bool(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return Int(iv), nil
		}
		fv, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Double(fv), nil
	case string:
		return String(t), nil
	case []interface{}:
		elems := make([]Value, len(t))
		for i, e := range t {
			v, err := fromInterface(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Array(elems), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := fromInterface(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Object(m), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported JSON type %T", ErrTypeMismatch, raw)
	}
}

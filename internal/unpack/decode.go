package unpack

import (
	"encoding/json"
	"fmt"
	"io"
)

// member is one field of a decoded JSON object, in document order.
// encoding/json maps lose key order, and column order matters downstream
// (schema derivation uses it), so objects decode to ordered member slices.
type member struct {
	key string
	val any
}

// object is a decoded JSON object with its fields in document order.
type object []member

// get returns the value of the named field and whether it exists.
func (o object) get(key string) (any, bool) {
	for _, m := range o {
		if m.key == key {
			return m.val, true
		}
	}
	return nil, false
}

// decodeDocument decodes a complete JSON document from r, preserving object
// key order. Decoded values are one of: nil, bool, json.Number, string,
// []any or object. Numbers stay as json.Number so large reference numbers
// survive without float rounding.
func decodeDocument(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	val, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	// Anything after the first value means the document is not valid JSON.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing content after top-level value")
	}
	return val, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFrom(dec, tok)
}

func decodeFrom(dec *json.Decoder, tok json.Token) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var obj object
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, member{key: key, val: val})
			}
			// Consume the closing brace.
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string, json.Number, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// plain converts a decoded value back into the shapes encoding/json produces
// natively, so cell values can be serialized or handed to database drivers.
// Object key order is lost, which only affects values that stay nested after
// flattening.
func plain(val any) any {
	switch v := val.(type) {
	case object:
		m := make(map[string]any, len(v))
		for _, f := range v {
			m[f.key] = plain(f.val)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

package platform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when an upstream response does not match
// any of the accepted shapes.
var ErrMalformedPayload = errors.New("malformed platform payload")

// decodeList normalizes list payloads from the Lambda fleet, which arrive
// either as a bare JSON array or wrapped as {"items": [...]}. Any other
// shape is rejected explicitly instead of silently defaulting to empty.
func decodeList(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
		}
		return nil
	case '{':
		var wrapper struct {
			Items json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
		}
		if wrapper.Items == nil {
			return fmt.Errorf("%w: object without items field", ErrMalformedPayload)
		}
		if err := json.Unmarshal(wrapper.Items, v); err != nil {
			return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: expected array or object", ErrMalformedPayload)
	}
}

// decodeObject normalizes object payloads, which arrive either bare or
// wrapped as {"data": {...}}.
func decodeObject(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}
	if data[0] != '{' {
		return fmt.Errorf("%w: expected object", ErrMalformedPayload)
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}
	if wrapper.Data != nil {
		data = wrapper.Data
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}
	return nil
}

package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// optString accepts a JSON string or null
type optString string

func (s *optString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("expected string, got %s", data)
	}
	*s = optString(v)
	return nil
}

// addressList accepts a comma separated string, a list of strings, or null
type addressList string

func (a *addressList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("expected list of strings, got %s", data)
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		*a = addressList(strings.Join(parts, ", "))
		return nil
	}
	var s optString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = addressList(s)
	return nil
}

// decodeObject strictly decodes a JSON object reply into v
func decodeObject(reply string, v any) error {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("reply is not a JSON object")
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}

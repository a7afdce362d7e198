package models

import (
	"bytes"
	"encoding/json"

	"vaultadmin/utils"
)

// Unmarshal decodes JSON into v while accepting PascalCase and camelCase keys
// interchangeably for the same logical field. Vaultwarden emits both casings
// depending on the endpoint, so every object key is folded to camelCase in a
// single normalizing pass before standard decoding. Unknown fields are
// ignored.
func Unmarshal(data []byte, v any) error {
	norm, err := normalizeKeys(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

// normalizeKeys rewrites every object key in raw JSON to camelCase,
// recursing through nested objects and arrays. Non-container values are
// returned untouched.
func normalizeKeys(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return raw, nil
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		out := make(map[string]json.RawMessage, len(obj))
		for key, val := range obj {
			norm, err := normalizeKeys(val)
			if err != nil {
				return nil, err
			}
			out[utils.PascalToCamel(key)] = norm
		}
		return json.Marshal(out)
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, err
		}
		out := make([]json.RawMessage, 0, len(arr))
		for _, val := range arr {
			norm, err := normalizeKeys(val)
			if err != nil {
				return nil, err
			}
			out = append(out, norm)
		}
		return json.Marshal(out)
	}

	return raw, nil
}

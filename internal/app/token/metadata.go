package token

import (
	"encoding/json"
	"fmt"
)

// EncodeMetadata serializes participant metadata as compact JSON with keys in sorted
// order. A nil or empty map encodes to "".
func EncodeMetadata(md map[string]string) (string, error) {
	if len(md) == 0 {
		return "", nil
	}

	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses a metadata string produced by EncodeMetadata. Empty input
// yields a nil map.
func DecodeMetadata(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}

	var md map[string]string
	if err := json.Unmarshal([]byte(s), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}

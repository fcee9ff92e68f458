package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Arguments arrive as decoded JSON, so numbers are float64 and objects are
// map[string]any.

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(s), nil
}

// intParam returns (0, false, nil) when the key is absent.
func intParam(params map[string]any, key string) (int, bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%s must be a whole number, got: %v", key, f)
	}
	return int(f), true, nil
}

func boolParam(params map[string]any, key string, fallback bool) (bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

// objectParam decodes a nested object into out, returning false when absent.
func objectParam(params map[string]any, key string, out any) (bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return false, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return false, fmt.Errorf("%s must be an object", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return true, nil
}

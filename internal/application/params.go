package application

import (
	"fmt"
)

// getStringParam extracts a string parameter from the arguments map.
// Returns an error if the parameter is required but missing or not a string.
func getStringParam(args map[string]interface{}, name string, required bool) (string, error) {
	value, exists := args[name]
	if !exists {
		if required {
			return "", fmt.Errorf("missing required parameter: %s", name)
		}
		return "", nil
	}

	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string", name)
	}

	return strValue, nil
}

// getOptionalString extracts an optional string parameter, reporting whether
// the caller supplied it at all. Presence matters for partial updates: only
// fields the caller actually passed may be written.
func getOptionalString(args map[string]interface{}, name string) (string, bool, error) {
	value, exists := args[name]
	if !exists {
		return "", false, nil
	}

	strValue, ok := value.(string)
	if !ok {
		return "", false, fmt.Errorf("parameter %s must be a string", name)
	}

	return strValue, true, nil
}

// getIntParam extracts an integer parameter from the arguments map, falling
// back to def when absent. JSON numbers arrive as float64.
func getIntParam(args map[string]interface{}, name string, def int) (int, error) {
	value, exists := args[name]
	if !exists {
		return def, nil
	}

	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("parameter %s must be an integer", name)
	}
}

// getStringSliceParam extracts an optional string-array parameter, reporting
// whether the caller supplied it.
func getStringSliceParam(args map[string]interface{}, name string) ([]string, bool, error) {
	value, exists := args[name]
	if !exists {
		return nil, false, nil
	}

	items, ok := value.([]interface{})
	if !ok {
		return nil, false, fmt.Errorf("parameter %s must be an array of strings", name)
	}

	result := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false, fmt.Errorf("parameter %s must be an array of strings", name)
		}
		result[i] = s
	}

	return result, true, nil
}

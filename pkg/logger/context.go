package logger

import "fmt"

// ParseContext flattens the variadic context of a log call into one map.
//
// Accepted shapes, freely mixed:
//   - map[string]any, merged as is
//   - alternating key/value pairs ("symbol", "ETH/USDT")
//   - a bare error, stored under "error"
//
// A trailing key without a value is stored with a nil value. nil entries are skipped.
func ParseContext(context []any) map[string]any {
	if len(context) == 0 {
		return nil
	}

	result := make(map[string]any)
	for i := 0; i < len(context); i++ {
		switch v := context[i].(type) {
		case nil:
			continue
		case map[string]any:
			for key, value := range v {
				result[key] = value
			}
		case error:
			result["error"] = v
		case string:
			if i+1 < len(context) {
				result[v] = context[i+1]
				i++
			} else {
				result[v] = nil
			}
		default:
			result[fmt.Sprintf("arg%d", i)] = v
		}
	}
	return result
}

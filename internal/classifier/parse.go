package classifier

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no valid JSON object found in response")

// ParseResponse extracts a JSON object from a model response. It tries the
// whole text, then the first ```json fence, then the span from the first '{'
// to the last '}'.
func ParseResponse(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if obj, err := decodeObject(trimmed); err == nil {
		return obj, nil
	}

	if fenced, ok := fencedJSON(trimmed); ok {
		if obj, err := decodeObject(fenced); err == nil {
			return obj, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		obj, err := decodeObject(trimmed[start : end+1])
		if err != nil {
			return nil, err
		}
		return obj, nil
	}

	return nil, errNoJSON
}

func fencedJSON(text string) (string, bool) {
	const fence = "```json"
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	start += len(fence)
	end := strings.Index(text[start:], "```")
	if end <= 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNoJSON
	}
	return obj, nil
}

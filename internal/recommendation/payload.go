package recommendation

import (
	"encoding/json"
	"strings"

	"github.com/socialchef/moodbite/internal/errors"
)

// ParsePayload decodes model output into a JSON object. Models occasionally
// wrap the object in prose or a fenced code block, so the outermost {...} is
// used when the text as a whole does not parse.
func ParsePayload(content string) (map[string]any, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, errors.NewUpstreamMalformedError("inference response is empty", "EMPTY_PAYLOAD", nil)
	}

	var raw map[string]any
	err := json.Unmarshal([]byte(text), &raw)
	if err == nil && raw != nil {
		return raw, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.NewUpstreamMalformedError("inference response is not a JSON object", "INVALID_PAYLOAD", err)
	}

	raw = nil
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil || raw == nil {
		return nil, errors.NewUpstreamMalformedError("inference response is not a JSON object", "INVALID_PAYLOAD", err)
	}
	return raw, nil
}

// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fencedObject extracts a JSON object wrapped in a markdown code fence.
// \x60 stands in for the backtick, which raw strings cannot hold.
var fencedObject = regexp.MustCompile("(?s)\x60\x60\x60(?:json|JSON)?\\s*({.*})\\s*\x60\x60\x60")

// ExtractJSONObject returns the JSON object inside a model reply. Models in
// JSON mode usually answer with the bare object, but some still wrap it in a
// code fence or a sentence of preamble.
func ExtractJSONObject(reply string) string {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, "{") {
		return reply
	}
	if m := fencedObject.FindStringSubmatch(reply); len(m) > 1 {
		return m[1]
	}
	first, last := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if first != -1 && last > first {
		return reply[first : last+1]
	}
	return reply
}

// ParseJSONResponse decodes a model reply into T.
func ParseJSONResponse[T any](reply string) (*T, error) {
	raw := ExtractJSONObject(reply)
	var result T
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model JSON: %w (extracted: %s)", err, truncate(raw, 500))
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

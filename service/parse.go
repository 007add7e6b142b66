package service

import (
	"encoding/json"
	"strings"
)

// extractJSONObject locates the first '{' and the last '}' in raw model
// output and returns the substring between them. Models wrap JSON in prose or
// code fences often enough that this best-effort extraction is the contract:
// callers strict-parse the result and fall back to a documented fail-open
// default when it does not hold together.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeJSONObject extracts and strictly parses a JSON object from raw model
// output into out. Any failure reports false; it never guesses at partial
// content.
func decodeJSONObject(raw string, out interface{}) bool {
	jsonStr, ok := extractJSONObject(raw)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(jsonStr), out) == nil
}

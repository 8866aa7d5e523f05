// Package jsonx holds small JSON helpers for coping with LLM replies that
// wrap structured output in prose or code fences.
package jsonx

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractObject returns the first balanced, valid top-level JSON object in
// text, or "" when none exists. String literals and escapes are honored so
// braces inside strings never end the scan.
func ExtractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if gjson.Valid(candidate) {
					return candidate
				}
				return ""
			}
		}
	}
	return ""
}

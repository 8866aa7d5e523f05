package tool

import (
	"encoding/json"
	"errors"
	"strings"
)

// Marker grammar, version 1. TOOL_RESULT and TOOL_ERROR use a distinct prefix
// so substituted output can never be re-parsed as a new call.
const (
	callPrefix   = "[TOOL_CALL:"
	resultPrefix = "[TOOL_RESULT: "
	errorPrefix  = "[TOOL_ERROR: "
	markerSuffix = "]"
)

// ErrMalformedParams flags a recognized marker whose parameter payload is not
// valid JSON. The executor turns it into an inline [TOOL_ERROR: ...]
// substitution rather than dropping the call silently.
var ErrMalformedParams = errors.New("malformed tool call parameters")

// Call is one parsed `[TOOL_CALL: id({...})]` occurrence inside a text blob.
// Start and End delimit the whole marker (byte offsets, End exclusive) for
// later in-place substitution.
type Call struct {
	ToolID    string
	RawParams string
	Start     int
	End       int
	ParseErr  error
}

// ParseCalls extracts all tool-call markers from text in source order.
// Parsing is pure: the same input always yields the same sequence. Text
// fragments that merely resemble the grammar without completing it are left
// alone; a structurally complete marker with invalid JSON inside yields a
// Call with ParseErr set.
func ParseCalls(text string) []Call {
	var calls []Call
	for i := 0; i < len(text); {
		rel := strings.Index(text[i:], callPrefix)
		if rel < 0 {
			break
		}
		start := i + rel
		call, end, ok := parseOne(text, start)
		if !ok {
			i = start + len(callPrefix)
			continue
		}
		calls = append(calls, call)
		i = end
	}
	return calls
}

// parseOne attempts to parse a single marker starting at the callPrefix
// offset. It returns ok=false when the envelope never completes.
func parseOne(text string, start int) (Call, int, bool) {
	pos := start + len(callPrefix)
	pos = skipSpaces(text, pos)

	idStart := pos
	for pos < len(text) && isIdentChar(text[pos]) {
		pos++
	}
	toolID := text[idStart:pos]
	if toolID == "" {
		return Call{}, 0, false
	}

	pos = skipSpaces(text, pos)
	if pos >= len(text) || text[pos] != '(' {
		return Call{}, 0, false
	}
	pos++

	raw, after, balanced := scanJSONObject(text, pos)
	if !balanced {
		// Envelope recovery: capture up to the nearest `)]` so a marker with
		// truncated JSON still surfaces as a parse error instead of vanishing.
		// The scan stops at the next callPrefix: a broken marker must never
		// swallow a complete one that follows it.
		region := text[pos:]
		if next := strings.Index(region, callPrefix); next >= 0 {
			region = region[:next]
		}
		rel := strings.Index(region, ")"+markerSuffix)
		if rel < 0 {
			return Call{}, 0, false
		}
		raw = strings.TrimSpace(text[pos : pos+rel])
		end := pos + rel + 2
		return Call{ToolID: toolID, RawParams: raw, Start: start, End: end, ParseErr: ErrMalformedParams}, end, true
	}

	pos = skipSpaces(text, after)
	if pos >= len(text) || text[pos] != ')' {
		return Call{}, 0, false
	}
	pos++
	if pos >= len(text) || text[pos] != ']' {
		return Call{}, 0, false
	}
	pos++

	call := Call{ToolID: toolID, RawParams: raw, Start: start, End: pos}
	if !json.Valid([]byte(raw)) {
		call.ParseErr = ErrMalformedParams
	}
	return call, pos, true
}

// scanJSONObject consumes a brace-balanced object starting at pos, honoring
// string literals and escapes so braces inside strings do not end the scan.
func scanJSONObject(text string, pos int) (raw string, after int, ok bool) {
	pos = skipSpaces(text, pos)
	if pos >= len(text) || text[pos] != '{' {
		return "", 0, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := pos; i < len(text); i++ {
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
				return text[pos : i+1], i + 1, true
			}
		}
	}
	return "", 0, false
}

func skipSpaces(text string, pos int) int {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t') {
		pos++
	}
	return pos
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.'
}

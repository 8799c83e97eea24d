// Package jsonrepair closes structured output that an upstream model cut off mid-stream.
//
// Repair only ever removes an incomplete trailing fragment or appends closing
// quotes/brackets; complete content before the truncation point is never rewritten.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"ArticlesPublisher/internal/domain"
)

var (
	// fencePattern matches an opening markdown code fence, optionally tagged json.
	fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?")
	// danglingFieldPattern matches `,"key": "unterminated` at the end of the document.
	danglingFieldPattern = regexp.MustCompile(`(?s)^,\s*"(?:[^"\\]|\\.)*"\s*:\s*"(?:[^"\\]|\\.)*\\?$`)
	// partialUnicodePattern matches an escape sequence cut before its four hex digits.
	partialUnicodePattern = regexp.MustCompile(`\\u[0-9a-fA-F]{0,3}$`)
)

// Repair returns raw unchanged when it already parses as an object, otherwise a
// repaired object document. On failure the original text is returned together
// with an error wrapping domain.ErrTruncatedUnrepairable.
func Repair(raw string) (string, error) {
	if isObject(raw) {
		return raw, nil
	}

	doc, ok := extractObject(raw)
	if !ok {
		return raw, fmt.Errorf("no object start found: %w", domain.ErrTruncatedUnrepairable)
	}
	if isObject(doc) {
		return doc, nil
	}

	if repaired, ok := closeDocument(doc); ok {
		return repaired, nil
	}
	if repaired, ok := cutToLastValue(doc); ok {
		return repaired, nil
	}

	return raw, fmt.Errorf("document of %d bytes: %w", len(raw), domain.ErrTruncatedUnrepairable)
}

// Decode repairs raw and unmarshals the result into v.
func Decode(raw string, v any) error {
	repaired, err := Repair(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decode repaired document: %w", err)
	}
	return nil
}

// closeDocument strips a dangling partial field, closes an open string and
// appends the closers for every container still open.
func closeDocument(doc string) (string, bool) {
	st := scan(doc)

	if st.inString && st.lastComma >= 0 && danglingFieldPattern.MatchString(doc[st.lastComma:]) {
		doc = doc[:st.lastComma]
		st = scan(doc)
	}

	if st.inString {
		doc = closeString(doc, st.escaped)
		st = scan(doc)
		if st.inString {
			return "", false
		}
	}

	trimmed := strings.TrimRight(doc, " \t\r\n")
	if strings.HasSuffix(trimmed, ",") {
		doc = strings.TrimSuffix(trimmed, ",")
	}

	candidate := doc + closers(st.stack)
	return candidate, isObject(candidate)
}

// cutToLastValue truncates at the last point where every open container held
// only complete members, then closes them.
func cutToLastValue(doc string) (string, bool) {
	st := scan(doc)
	if st.safeAt < 0 {
		return "", false
	}
	candidate := doc[:st.safeAt] + closers(st.safeStack)
	return candidate, isObject(candidate)
}

func closeString(doc string, escaped bool) string {
	if escaped {
		doc = doc[:len(doc)-1]
	}
	doc = partialUnicodePattern.ReplaceAllString(doc, "")
	for i := 0; i < utf8.UTFMax && doc != ""; i++ {
		r, size := utf8.DecodeLastRuneInString(doc)
		if r != utf8.RuneError || size != 1 {
			break
		}
		doc = doc[:len(doc)-1]
	}
	return doc + `"`
}

func closers(stack []byte) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// extractObject drops markdown fences and any prose around the root object.
func extractObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if loc := fencePattern.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	s = s[start:]

	if end := scan(s).rootEnd; end > 0 {
		s = s[:end]
	}
	return s, true
}

func isObject(s string) bool {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

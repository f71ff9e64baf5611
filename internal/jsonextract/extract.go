// Package jsonextract recovers a JSON value from free-form model output.
//
// Model responses wrap JSON in prose, code fences, or get cut off mid-stream.
// Extract runs an ordered list of cheap recovery strategies and returns the
// first value that parses. It never inspects what the value means.
package jsonextract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionError is returned when no strategy recovers a JSON value.
type ExtractionError struct {
	Length int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no JSON value recoverable from text (%d bytes)", e.Length)
}

// Strategy is one recovery attempt. Fn must be pure: same text, same result.
type Strategy struct {
	Name string
	Fn   func(text string) (json.RawMessage, bool)
}

// Strategies is the evaluation order used by Extract, cheapest first.
var Strategies = []Strategy{
	{Name: "greedy_object", Fn: GreedyObject},
	{Name: "balanced_object", Fn: BalancedObject},
	{Name: "trailing_comma_repair", Fn: RepairTrailingCommas},
	{Name: "object_array", Fn: ObjectArray},
}

// Extract returns the first JSON value recovered from text.
func Extract(text string) (any, error) {
	raw, _, err := ExtractRaw(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding recovered span: %w", err)
	}
	return v, nil
}

// ExtractInto recovers a JSON value from text and decodes it into v.
func ExtractInto(text string, v any) error {
	raw, _, err := ExtractRaw(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding recovered span: %w", err)
	}
	return nil
}

// ExtractRaw returns the recovered span and the name of the strategy that
// produced it.
func ExtractRaw(text string) (json.RawMessage, string, error) {
	for _, s := range Strategies {
		if raw, ok := s.Fn(text); ok {
			return raw, s.Name, nil
		}
	}
	return nil, "", &ExtractionError{Length: len(text)}
}

// GreedyObject parses the span from the first '{' to the last '}'.
func GreedyObject(text string) (json.RawMessage, bool) {
	if leadsWithObjectArray(text) {
		return nil, false
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return validSpan(text[start : end+1])
}

// BalancedObject walks from the first '{' tracking nesting depth and parses
// the span that closes it. Trailing prose containing braces is ignored.
func BalancedObject(text string) (json.RawMessage, bool) {
	if leadsWithObjectArray(text) {
		return nil, false
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}
	span, ok := balancedSpan(text, start, '{', '}')
	if !ok {
		return nil, false
	}
	return validSpan(span)
}

// RepairTrailingCommas drops commas that directly precede '}' or ']' in the
// greedy object span and parses the result. Commas inside string literals
// are kept.
func RepairTrailingCommas(text string) (json.RawMessage, bool) {
	if leadsWithObjectArray(text) {
		return nil, false
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	span := text[start : end+1]
	repaired := stripTrailingCommas(span)
	if repaired == span {
		return nil, false
	}
	return validSpan(repaired)
}

// ObjectArray looks for a top-level "[ {...} ]" span. Each candidate '['
// is tried in order, first as written and then with trailing commas removed.
func ObjectArray(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' || !opensObject(text[i+1:]) {
			continue
		}
		span, ok := balancedSpan(text, i, '[', ']')
		if !ok {
			continue
		}
		if raw, ok := validSpan(span); ok {
			return raw, true
		}
		if raw, ok := validSpan(stripTrailingCommas(span)); ok {
			return raw, true
		}
	}
	return nil, false
}

// balancedSpan returns text[start:end+1] where end closes the opener at
// start. Quoted strings are skipped so braces inside values do not count.
func balancedSpan(text string, start int, open, close byte) (string, bool) {
	depth := 0
	var q quoteState
	for i := start; i < len(text); i++ {
		c := text[i]
		if q.consume(c) {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// stripTrailingCommas removes each comma outside a string literal whose next
// non-space byte is '}' or ']'.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var q quoteState
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !q.consume(c) && c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// quoteState tracks JSON string literals while scanning byte by byte.
type quoteState struct {
	in      bool
	escaped bool
}

// consume reports whether c belongs to a string literal, quotes included.
func (q *quoteState) consume(c byte) bool {
	if q.in {
		switch {
		case q.escaped:
			q.escaped = false
		case c == '\\':
			q.escaped = true
		case c == '"':
			q.in = false
		}
		return true
	}
	if c == '"' {
		q.in = true
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// leadsWithObjectArray reports whether an array of objects opens before any
// bare object does.
func leadsWithObjectArray(text string) bool {
	arr := strings.IndexByte(text, '[')
	if arr < 0 {
		return false
	}
	obj := strings.IndexByte(text, '{')
	if obj >= 0 && obj < arr {
		return false
	}
	return opensObject(text[arr+1:])
}

func opensObject(rest string) bool {
	return strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), "{")
}

func validSpan(s string) (json.RawMessage, bool) {
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// Package ingredient extracts quantity, unit and name from free-text
// ingredient lines such as "1 1/2 cups flour" or "2-3 cloves garlic, minced".
//
// The parser is heuristic. Lines that do not look like ingredients are
// dropped rather than returned as partial records, and ParseBatch reports a
// confidence ratio so callers can decide whether to confirm with the user.
package ingredient

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Line is one successfully parsed ingredient line. Name is never empty.
type Line struct {
	Original      string   `json:"original"`
	Text          string   `json:"text"`
	Quantity      *string  `json:"quantity"`
	QuantityValue *float64 `json:"quantity_value"`
	Unit          *string  `json:"unit"`
	Name          string   `json:"name"`
}

// Batch is the result of parsing a multi-line block.
type Batch struct {
	Items          []Line  `json:"items"`
	CandidateLines int     `json:"candidate_lines"`
	Confidence     float64 `json:"confidence"`
}

const maxKeywordLineWords = 10

var (
	numPattern = `(?:\d+\s+\d+/\d+|\d+/\d+|\d+(?:\.\d+)?)`
	quantityRe = regexp.MustCompile(`^(` + numPattern + `)(?:\s*(?:-|–|to)\s*(` + numPattern + `))?`)
	mixedRe    = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)$`)
	fractionRe = regexp.MustCompile(`^(\d+)/(\d+)$`)
	markerRe   = regexp.MustCompile(`^\s*(?:\d+[.)]\s+|[-*•·▪◦‣●○]+\s*)`)
	wordRe     = regexp.MustCompile(`[a-zA-Z]+`)
)

// ParseLine parses a single line. It returns nil when the line does not look
// like an ingredient or yields no name.
func ParseLine(line string) *Line {
	text := prepare(line)
	if text == "" || !isCandidate(text) {
		return nil
	}
	return parse(line, text)
}

// ParseBatch parses every line of freeText. Blank lines are ignored.
func ParseBatch(freeText string) Batch {
	var (
		items      = []Line{}
		candidates int
		total      int
	)
	for _, raw := range strings.Split(strings.ReplaceAll(freeText, "\r\n", "\n"), "\n") {
		text := prepare(raw)
		if text == "" {
			continue
		}
		total++
		if !isCandidate(text) {
			continue
		}
		candidates++
		if l := parse(raw, text); l != nil {
			items = append(items, *l)
		}
	}

	denom := candidates
	if denom == 0 {
		denom = total
	}
	if denom == 0 {
		denom = 1
	}
	return Batch{
		Items:          items,
		CandidateLines: candidates,
		Confidence:     math.Min(1, float64(len(items))/float64(denom)),
	}
}

// prepare normalizes fractions and strips list markers.
func prepare(line string) string {
	text := NormalizeFractions(strings.TrimSpace(line))
	text = markerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func isCandidate(text string) bool {
	if quantityRe.MatchString(text) {
		return true
	}
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 || instructionVerbs[words[0]] {
		return false
	}
	for _, w := range words {
		if len(w) > 1 && units[w] {
			return true
		}
	}
	if len(words) > maxKeywordLineWords {
		return false
	}
	for _, w := range words {
		if foodKeywords[w] {
			return true
		}
	}
	return false
}

func parse(original, text string) *Line {
	l := Line{Original: original, Text: text}
	rest := text

	if m := quantityRe.FindStringSubmatch(rest); m != nil {
		if v, ok := quantityValue(m[1], m[2]); ok {
			q := strings.TrimSpace(m[0])
			l.Quantity = &q
			l.QuantityValue = &v
			rest = strings.TrimSpace(rest[len(m[0]):])
		}
	}

	if unit, remainder, ok := leadingUnit(rest, l.Quantity != nil); ok {
		l.Unit = &unit
		rest = remainder
	}

	name := strings.TrimSpace(rest)
	if lower := strings.ToLower(name); strings.HasPrefix(lower, "of ") {
		name = strings.TrimSpace(name[3:])
	}
	if name == "" {
		return nil
	}
	l.Name = name
	return &l
}

// quantityValue evaluates a quantity, averaging the endpoints of a range.
func quantityValue(low, high string) (float64, bool) {
	lo, ok := evalNumber(low)
	if !ok {
		return 0, false
	}
	if high == "" {
		return round3(lo), true
	}
	hi, ok := evalNumber(high)
	if !ok {
		return 0, false
	}
	return round3((lo + hi) / 2), true
}

func evalNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if m := mixedRe.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		frac, ok := ratio(m[2], m[3])
		return whole + frac, ok
	}
	if m := fractionRe.FindStringSubmatch(s); m != nil {
		return ratio(m[1], m[2])
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func ratio(num, den string) (float64, bool) {
	n, _ := strconv.ParseFloat(num, 64)
	d, _ := strconv.ParseFloat(den, 64)
	if d == 0 {
		return 0, false
	}
	return n / d, true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// leadingUnit consumes a unit token at the start of rest. Single-letter
// units ("g", "l", "c") are only accepted right after a quantity.
func leadingUnit(rest string, afterQuantity bool) (unit, remainder string, ok bool) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", false
	}
	token := cleanToken(fields[0])
	consumed := 1

	if (token == "fl" || token == "fluid") && len(fields) > 1 {
		if next := cleanToken(fields[1]); next == "oz" || next == "ounce" || next == "ounces" {
			token = "fl oz"
			consumed = 2
		}
	}
	if !units[token] && token != "fl oz" {
		return "", "", false
	}
	if len(token) == 1 && !afterQuantity {
		return "", "", false
	}

	remainder = rest
	for i := 0; i < consumed; i++ {
		remainder = strings.TrimSpace(remainder)
		remainder = remainder[len(strings.Fields(remainder)[0]):]
	}
	return token, strings.TrimSpace(remainder), true
}

func cleanToken(tok string) string {
	return strings.TrimRight(strings.ToLower(tok), ".,;:")
}

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/kalambet/larder/internal/ingredient"
)

// Document is the recipe content recovered from a page or file before it
// becomes a stored recipe.
type Document struct {
	Title        string
	Ingredients  []string
	Instructions string
	Servings     int
}

var (
	multiNewline   = regexp.MustCompile(`\n{3,}`)
	multiSpace     = regexp.MustCompile(`[ \t]+`)
	ingredientHead = regexp.MustCompile(`(?i)^\s*#*\s*ingredients?\s*:?\s*$`)
	methodHead     = regexp.MustCompile(`(?i)^\s*#*\s*(?:instructions|directions|method|preparation|steps)\s*:?\s*$`)
	servingsRe     = regexp.MustCompile(`(?i)(?:serves|servings|yield|makes)\D{0,12}(\d+)`)
	digitsRe       = regexp.MustCompile(`\d+`)
)

// FromHTML extracts a recipe from an HTML page. A schema.org Recipe in
// JSON-LD wins; otherwise the page text is split on its ingredient and
// method headings.
func FromHTML(r io.Reader) (Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return Document{}, fmt.Errorf("parsing html: %w", err)
	}

	for _, block := range jsonLDBlocks(root) {
		if doc, ok := recipeFromJSONLD(block); ok {
			return doc, nil
		}
	}

	var sb strings.Builder
	var title string
	collectText(root, &sb, &title, 0)
	doc := FromText(sb.String())
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

// FromPDF extracts the plain text of a PDF and splits it like FromText.
func FromPDF(r io.ReaderAt, size int64) (Document, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return Document{}, fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return Document{}, fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Document{}, fmt.Errorf("reading pdf text: %w", err)
	}
	return FromText(buf.String()), nil
}

// FromText splits free text into title, ingredients and instructions. The
// first non-empty line is the title. With an "Ingredients" heading, lines up
// to the method heading are ingredients; without one, the lines the
// ingredient parser accepts are.
func FromText(text string) Document {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var doc Document
	if m := servingsRe.FindStringSubmatch(text); m != nil {
		doc.Servings, _ = strconv.Atoi(m[1])
	}

	const (
		preamble = iota
		inIngredients
		inMethod
	)
	state := preamble
	sawHeading := false
	var method, rest []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			if state == inMethod {
				method = append(method, "")
			}
			continue
		}
		if doc.Title == "" {
			doc.Title = strings.TrimLeft(line, "# ")
			continue
		}
		switch {
		case ingredientHead.MatchString(line):
			state, sawHeading = inIngredients, true
			continue
		case methodHead.MatchString(line):
			state = inMethod
			continue
		}
		switch state {
		case inIngredients:
			doc.Ingredients = append(doc.Ingredients, line)
		case inMethod:
			method = append(method, line)
		default:
			rest = append(rest, line)
		}
	}

	if !sawHeading {
		for _, line := range rest {
			if ingredient.ParseLine(line) != nil {
				doc.Ingredients = append(doc.Ingredients, line)
			} else if len(method) == 0 {
				method = append(method, line)
			}
		}
	}
	doc.Instructions = strings.TrimSpace(multiNewline.ReplaceAllString(strings.Join(method, "\n"), "\n\n"))
	return doc
}

func jsonLDBlocks(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && attr(n, "type") == "application/ld+json" {
			if n.FirstChild != nil {
				out = append(out, n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// recipeFromJSONLD finds a Recipe node in a JSON-LD block. Blocks may be a
// single object, an array, or an object with an @graph.
func recipeFromJSONLD(block string) (Document, bool) {
	var v any
	if err := json.Unmarshal([]byte(block), &v); err != nil {
		return Document{}, false
	}
	var find func(any) (map[string]any, bool)
	find = func(v any) (map[string]any, bool) {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				if m, ok := find(e); ok {
					return m, true
				}
			}
		case map[string]any:
			if isRecipeType(t["@type"]) {
				return t, true
			}
			if g, ok := t["@graph"]; ok {
				return find(g)
			}
		}
		return nil, false
	}
	m, ok := find(v)
	if !ok {
		return Document{}, false
	}

	doc := Document{Title: strings.TrimSpace(stringOf(m["name"]))}
	for _, ing := range listOf(m["recipeIngredient"]) {
		if s := strings.TrimSpace(stringOf(ing)); s != "" {
			doc.Ingredients = append(doc.Ingredients, s)
		}
	}
	var steps []string
	for _, step := range listOf(m["recipeInstructions"]) {
		switch s := step.(type) {
		case map[string]any:
			if t := strings.TrimSpace(stringOf(s["text"])); t != "" {
				steps = append(steps, t)
			}
		default:
			if t := strings.TrimSpace(stringOf(s)); t != "" {
				steps = append(steps, t)
			}
		}
	}
	doc.Instructions = strings.Join(steps, "\n")
	for _, y := range listOf(m["recipeYield"]) {
		if mm := digitsRe.FindString(stringOf(y)); mm != "" {
			doc.Servings, _ = strconv.Atoi(mm)
			break
		}
	}
	return doc, true
}

func isRecipeType(v any) bool {
	for _, t := range listOf(v) {
		if stringOf(t) == "Recipe" {
			return true
		}
	}
	return false
}

func listOf(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return html.UnescapeString(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// collectText renders visible text with one block element per line. The
// first <title> or <h1> becomes title.
func collectText(n *html.Node, sb *strings.Builder, title *string, depth int) {
	if depth > 64 {
		return
	}
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(multiSpace.ReplaceAllString(n.Data, " ")); t != "" {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "form":
			return
		case "title", "h1":
			if *title == "" {
				*title = strings.TrimSpace(textOf(n))
			}
			if n.Data == "title" {
				return
			}
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.Data)
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb, title, depth+1)
	}
	if block {
		sb.WriteString("\n")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "br", "tr", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol":
		return true
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return multiSpace.ReplaceAllString(sb.String(), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

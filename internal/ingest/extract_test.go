package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const jsonLDPage = `<!doctype html>
<html><head>
<title>Best Pancakes | Some Blog</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebPage","name":"Best Pancakes"},
  {"@type":["Recipe"],"name":"Fluffy Pancakes &amp; Syrup",
   "recipeYield":["4 servings","4"],
   "recipeIngredient":["2 cups flour","2 eggs","1 1/2 cups milk"],
   "recipeInstructions":[{"@type":"HowToStep","text":"Whisk everything."},{"@type":"HowToStep","text":"Fry in butter."}]}
]}
</script>
</head><body><p>Long story about pancakes.</p></body></html>`

const plainPage = `<html><head><title>Tomato Soup</title><style>p{color:red}</style></head>
<body>
<nav>Home | Recipes</nav>
<h1>Tomato Soup</h1>
<p>Serves 2</p>
<h2>Ingredients</h2>
<ul><li>4 tomatoes</li><li>1 <b>cup</b> stock</li><li>salt</li></ul>
<h2>Method</h2>
<ol><li>Chop the tomatoes.</li><li>Simmer with stock for 20 minutes.</li></ol>
<script>track()</script>
</body></html>`

func TestFromHTML_JSONLD(t *testing.T) {
	doc, err := FromHTML(strings.NewReader(jsonLDPage))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	want := Document{
		Title:        "Fluffy Pancakes & Syrup",
		Ingredients:  []string{"2 cups flour", "2 eggs", "1 1/2 cups milk"},
		Instructions: "Whisk everything.\nFry in butter.",
		Servings:     4,
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHTML_Headings(t *testing.T) {
	doc, err := FromHTML(strings.NewReader(plainPage))
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if doc.Title != "Tomato Soup" {
		t.Errorf("Title = %q", doc.Title)
	}
	if diff := cmp.Diff([]string{"4 tomatoes", "1 cup stock", "salt"}, doc.Ingredients); diff != "" {
		t.Errorf("ingredients mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(doc.Instructions, "Simmer with stock") {
		t.Errorf("Instructions = %q", doc.Instructions)
	}
	if strings.Contains(doc.Instructions, "track()") || strings.Contains(doc.Instructions, "Home") {
		t.Errorf("script or nav text leaked into instructions: %q", doc.Instructions)
	}
	if doc.Servings != 2 {
		t.Errorf("Servings = %d, want 2", doc.Servings)
	}
}

func TestFromText_Headings(t *testing.T) {
	text := "Garlic Bread\n\nIngredients:\n1 baguette\n3 cloves garlic\n\nDirections\nSlice the bread.\n\nBake for 10 minutes.\n"
	doc := FromText(text)
	want := Document{
		Title:        "Garlic Bread",
		Ingredients:  []string{"1 baguette", "3 cloves garlic"},
		Instructions: "Slice the bread.\n\nBake for 10 minutes.",
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestFromText_NoHeadings(t *testing.T) {
	doc := FromText("Quick Omelette\n2 eggs\n1 tbsp butter\nBeat the eggs and cook in butter.")
	if doc.Title != "Quick Omelette" {
		t.Errorf("Title = %q", doc.Title)
	}
	if len(doc.Ingredients) != 2 {
		t.Errorf("Ingredients = %v, want the two quantity lines", doc.Ingredients)
	}
}

func TestFromText_Empty(t *testing.T) {
	if diff := cmp.Diff(Document{}, FromText("  \n\n")); diff != "" {
		t.Errorf("empty text produced %s", diff)
	}
}

func TestFromPDF_Invalid(t *testing.T) {
	data := []byte("definitely not a pdf")
	if _, err := FromPDF(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("expected error for non-PDF input")
	}
}

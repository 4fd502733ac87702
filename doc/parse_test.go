package doc

import (
	"strings"
	"testing"
)

// src builds fenced test documents with "~~~" standing in for backticks.
func src(s string) string {
	return strings.ReplaceAll(s, "~~~", "```")
}

func onlyErrors(errs []ParseError) []ParseError {
	var out []ParseError

	for _, e := range errs {
		if !e.Warning {
			out = append(out, e)
		}
	}

	return out
}

func TestParse_ImplicitSection(t *testing.T) {
	d, errs := Parse("Just some prose.\n\nMore prose.")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if len(d.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(d.Sections))
	}

	if d.Sections[0].Name != "main" {
		t.Errorf("section name = %q, want %q", d.Sections[0].Name, "main")
	}

	if d.Sections[0].Title != "" {
		t.Errorf("implicit section has title %q", d.Sections[0].Title)
	}

	blocks := d.Sections[0].Blocks
	if len(blocks) != 1 || blocks[0].Kind != KindText {
		t.Fatalf("blocks = %+v, want one text block", blocks)
	}

	if blocks[0].Body != "Just some prose.\n\nMore prose." {
		t.Errorf("body = %q", blocks[0].Body)
	}
}

func TestParse_SectionsFromHeadings(t *testing.T) {
	d, errs := Parse("# First Part\n\nAlpha.\n\n## The Second!\n\nBeta.\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	want := []string{"first-part", "the-second"}
	if got := d.SectionNames(); len(got) != len(want) {
		t.Fatalf("sections = %v, want %v", got, want)
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("section[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	}

	if d.Sections[1].Title != "The Second!" {
		t.Errorf("title = %q, want %q", d.Sections[1].Title, "The Second!")
	}

	if got := d.SectionIndex("the-second"); got != 1 {
		t.Errorf("SectionIndex = %d, want 1", got)
	}

	if got := d.SectionIndex("nope"); got != -1 {
		t.Errorf("SectionIndex(nope) = %d, want -1", got)
	}
}

func TestParse_DuplicateHeadings(t *testing.T) {
	d, errs := Parse("# Room\n\nA.\n\n# Room\n\nB.\n")

	want := []string{"room", "room-2"}
	got := d.SectionNames()

	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("sections = %v, want %v", got, want)
	}

	// The rename is surfaced as a warning, not an error.
	if len(onlyErrors(errs)) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}

	warned := false

	for _, e := range errs {
		if e.Warning && strings.Contains(e.Msg, "duplicate") {
			warned = true
		}
	}

	if !warned {
		t.Error("duplicate heading not warned")
	}
}

func TestParse_Frontmatter(t *testing.T) {
	d, errs := Parse("---\ntitle: Quest\nversion: 2\n---\n\n# go\n\nHi.\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if d.Meta == nil {
		t.Fatal("frontmatter not parsed")
	}

	if d.Meta["title"] != "Quest" {
		t.Errorf("title = %v, want Quest", d.Meta["title"])
	}

	if len(d.Sections) != 1 || d.Sections[0].Name != "go" {
		t.Errorf("sections = %v", d.SectionNames())
	}
}

func TestParse_UnterminatedFrontmatter(t *testing.T) {
	d, errs := Parse("---\ntitle: Quest\n\nprose continues\n")

	if d.Meta != nil {
		t.Errorf("meta = %v, want nil", d.Meta)
	}

	warned := false

	for _, e := range errs {
		if e.Warning && strings.Contains(e.Msg, "frontmatter") {
			warned = true
		}
	}

	if !warned {
		t.Error("unterminated frontmatter not warned")
	}

	// The opening delimiter degrades to prose.
	if len(d.Sections) != 1 || len(d.Sections[0].Blocks) == 0 {
		t.Fatalf("document body lost: %+v", d.Sections)
	}
}

func TestParse_StateBlock(t *testing.T) {
	d, errs := Parse(src(`
~~~state
name = "Ada"  # trailing comment
hp = 10
tags = [
  "brave",
  "curious",
]
~~~
`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	blocks := d.Sections[0].Blocks
	if len(blocks) != 1 || blocks[0].Kind != KindState {
		t.Fatalf("blocks = %+v", blocks)
	}

	assigns := blocks[0].Assigns
	if len(assigns) != 3 {
		t.Fatalf("assigns = %d, want 3", len(assigns))
	}

	if assigns[0].Path != "name" || assigns[0].Expr != `"Ada"` {
		t.Errorf("assign[0] = %+v", assigns[0])
	}

	// Multi-line literals fold into one expression.
	if assigns[2].Path != "tags" ||
		!strings.Contains(assigns[2].Expr, `"curious"`) {
		t.Errorf("assign[2] = %+v", assigns[2])
	}
}

func TestParse_FormBlock(t *testing.T) {
	d, errs := Parse(src(`
~~~form
name: text label="Your name" required=true
age: number default="18"
color: select options=red,green,blue
bio: textarea
~~~
`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	fields := d.Sections[0].Blocks[0].Fields
	if len(fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(fields))
	}

	if fields[0].Label != "Your name" || !fields[0].Required {
		t.Errorf("field[0] = %+v", fields[0])
	}

	// Labels default to the field name.
	if fields[3].Label != "bio" {
		t.Errorf("field[3].Label = %q, want bio", fields[3].Label)
	}

	wantOptions := []string{"red", "green", "blue"}
	if got := fields[2].Options; len(got) != 3 ||
		got[0] != wantOptions[0] || got[2] != wantOptions[2] {
		t.Errorf("options = %v, want %v", got, wantOptions)
	}
}

func TestParse_MalformedBlocksAreInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"set without assignment", "~~~set\nno equals here\n~~~\n"},
		{"set bad path", "~~~set\n1bad = 2\n~~~\n"},
		{"form without fields", "~~~form\n~~~\n"},
		{"form unknown type", "~~~form\nx: widget\n~~~\n"},
		{"nav without target", "~~~nav\n~~~\n"},
		{"panel without colon", "~~~panel\nno separator\n~~~\n"},
		{"map bad tile", "~~~map rows=2 cols=2\nblob 1,1\n~~~\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, errs := Parse(src(tt.body))

			if len(onlyErrors(errs)) == 0 {
				t.Error("malformed block produced no error")
			}

			blocks := d.Sections[0].Blocks
			if len(blocks) != 1 || blocks[0].Kind != KindInvalid {
				t.Fatalf("blocks = %+v, want one invalid block", blocks)
			}

			if blocks[0].Err == "" {
				t.Error("invalid block carries no reason")
			}
		})
	}
}

func TestParse_IfElseMarkers(t *testing.T) {
	d, errs := Parse(src(`
~~~if cond="hp > 5"
Strong.
~~~else
Weak.
~~~
`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	blocks := d.Sections[0].Blocks

	wantKinds := []Kind{KindIf, KindText, KindElse, KindText, KindEndIf}
	if len(blocks) != len(wantKinds) {
		t.Fatalf("blocks = %d, want %d", len(blocks), len(wantKinds))
	}

	for i, kind := range wantKinds {
		if blocks[i].Kind != kind {
			t.Errorf("block[%d].Kind = %v, want %v", i, blocks[i].Kind, kind)
		}
	}

	if got := blocks[0].Param("cond"); got != "hp > 5" {
		t.Errorf("cond = %q, want %q", got, "hp > 5")
	}
}

func TestParse_BareFenceOutsideIfIsOpaque(t *testing.T) {
	d, errs := Parse(src(`
~~~
plain code
~~~
`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	blocks := d.Sections[0].Blocks
	if len(blocks) != 1 || blocks[0].Kind != KindOpaque {
		t.Fatalf("blocks = %+v, want one opaque block", blocks)
	}

	if blocks[0].Body != "plain code" {
		t.Errorf("body = %q", blocks[0].Body)
	}
}

func TestParse_UnclosedIfWarnings(t *testing.T) {
	_, errs := Parse(src(`
~~~if cond="x"
inside

# next

after
`))

	warned := false

	for _, e := range errs {
		if e.Warning && strings.Contains(e.Msg, "unclosed if") {
			warned = true
		}
	}

	if !warned {
		t.Errorf("unclosed if at section boundary not warned: %v", errs)
	}
}

func TestParse_ElseWithoutIfWarns(t *testing.T) {
	_, errs := Parse(src("~~~else\n"))

	warned := false

	for _, e := range errs {
		if e.Warning && strings.Contains(e.Msg, "else") {
			warned = true
		}
	}

	if !warned {
		t.Errorf("unmatched else not warned: %v", errs)
	}
}

func TestParse_UnterminatedFence(t *testing.T) {
	d, errs := Parse(src("Before.\n\n~~~state\nhp = 1\n"))

	if len(onlyErrors(errs)) == 0 {
		t.Error("unterminated fence produced no error")
	}

	// The partial block is discarded; earlier content survives.
	blocks := d.Sections[0].Blocks
	if len(blocks) != 1 || blocks[0].Kind != KindText {
		t.Fatalf("blocks = %+v, want only the text block", blocks)
	}
}

func TestParse_UnknownFenceIsOpaque(t *testing.T) {
	d, errs := Parse(src("~~~python\nprint('hi')\n~~~\n"))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	blocks := d.Sections[0].Blocks
	if len(blocks) != 1 || blocks[0].Kind != KindOpaque {
		t.Fatalf("blocks = %+v", blocks)
	}

	if blocks[0].Tag != "python" {
		t.Errorf("tag = %q, want python", blocks[0].Tag)
	}
}

func TestParse_MapBlock(t *testing.T) {
	d, errs := Parse(src(`
~~~map rows=3 cols=4
tile 0,0 sprite="wall"
tile 1,2 sprite="hero" label="you" when="alive"
~~~
`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	block := d.Sections[0].Blocks[0]
	if block.Kind != KindMap {
		t.Fatalf("kind = %v, want KindMap", block.Kind)
	}

	if block.Param("rows") != "3" || block.Param("cols") != "4" {
		t.Errorf("params = %v", block.Params)
	}

	tiles := block.Tiles
	if len(tiles) != 2 {
		t.Fatalf("tiles = %d, want 2", len(tiles))
	}

	if tiles[1].X != 1 || tiles[1].Y != 2 ||
		tiles[1].Sprite != "hero" || tiles[1].When != "alive" {
		t.Errorf("tile[1] = %+v", tiles[1])
	}
}

func TestParse_Spans(t *testing.T) {
	d, _ := Parse(src("line one\n\n~~~state\nhp = 1\n~~~\n"))

	blocks := d.Sections[0].Blocks
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}

	if blocks[0].Span.Start != 1 {
		t.Errorf("text span start = %d, want 1", blocks[0].Span.Start)
	}

	if blocks[1].Span.Start != 3 || blocks[1].Span.End != 5 {
		t.Errorf("state span = %+v, want 3..5", blocks[1].Span)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"The Second!", "the-second"},
		{"  Spaces  Galore  ", "spaces-galore"},
		{"Room 101", "room-101"},
		{"!!!", "section"},
		{"CamelCase", "camelcase"},
	}

	for _, tt := range tests {
		if got := slugify(tt.title); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

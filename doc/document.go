package doc

// Kind identifies the executable type of a block.
type Kind int

const (
	// KindText is plain Markdown prose between fences.
	KindText Kind = iota

	// KindOpaque is an untagged or unrecognized fence, rendered verbatim and
	// never executed.
	KindOpaque

	// KindInvalid is a block that failed its sub-grammar parse. It is kept in
	// the document as an inert marker so execution can surface the error
	// in-stream without halting.
	KindInvalid

	// KindState declares variables with initial values.
	KindState

	// KindSet assigns expressions to state paths.
	KindSet

	// KindForm declares input fields and suspends execution.
	KindForm

	// KindIf is a flat branch-open marker.
	KindIf

	// KindElse is a flat branch-flip marker.
	KindElse

	// KindEndIf is a flat branch-close marker.
	KindEndIf

	// KindNav jumps to another section.
	KindNav

	// KindPanel emits a structured display widget.
	KindPanel

	// KindMap emits a grid of tiles.
	KindMap
)

// String returns the block tag for the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindOpaque:
		return "opaque"
	case KindInvalid:
		return "invalid"
	case KindState:
		return "state"
	case KindSet:
		return "set"
	case KindForm:
		return "form"
	case KindIf:
		return "if"
	case KindElse:
		return "else"
	case KindEndIf:
		return "endif"
	case KindNav:
		return "nav"
	case KindPanel:
		return "panel"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Span records the source line range of a block, 1-based and inclusive.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Assign is one `path = expression` line from a state or set block.
// The expression is kept as source text and evaluated at execution time.
type Assign struct {
	Path string
	Expr string
	Line int
}

// Field is one declared input from a form block.
type Field struct {
	Name     string
	Type     string
	Label    string
	Required bool
	Default  string   // expression source, empty when absent
	Validate string   // expression source, empty when absent
	Options  []string // select fields only
	Line     int
}

// Entry is one `label: text` line from a panel block.
// The text is interpolated at execution time.
type Entry struct {
	Key  string
	Raw  string
	Line int
}

// Tile is one `tile X,Y ...` line from a map block.
type Tile struct {
	X      int
	Y      int
	Sprite string
	Label  string // interpolated at execution time
	When   string // visibility expression, empty means visible
	Line   int
}

// Block is one typed unit of content within a section.
// Exactly one of the payload slices is populated, selected by Kind.
type Block struct {
	Kind   Kind
	Tag    string            // raw fence tag (opaque blocks)
	Body   string            // raw body text
	Params map[string]string // fence info-string parameters
	Span   Span

	Assigns []Assign // state, set
	Fields  []Field  // form
	Entries []Entry  // panel
	Tiles   []Tile   // map

	Err string // invalid blocks: what went wrong
}

// Param returns the named info-string parameter, or empty when absent.
func (b *Block) Param(key string) string {
	return b.Params[key]
}

// Section is a navigable unit of a document.
type Section struct {
	// Name is the unique navigation identifier derived from the heading.
	Name string
	// Title is the original heading text, empty for the implicit section.
	Title string
	// Blocks are executed in order.
	Blocks []Block
}

// Document is an immutable parsed document.
type Document struct {
	// Meta holds YAML frontmatter fields, nil when absent.
	Meta map[string]any
	// Sections in source order. Never empty for non-empty input.
	Sections []Section
}

// SectionIndex returns the index of the named section, or -1.
func (d *Document) SectionIndex(name string) int {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return i
		}
	}

	return -1
}

// SectionNames returns all section names in document order.
func (d *Document) SectionNames() []string {
	names := make([]string, len(d.Sections))
	for i := range d.Sections {
		names[i] = d.Sections[i].Name
	}

	return names
}

package doc

import (
	"strconv"
	"strings"
)

// Parse parses a Markdown document.
// It never fails: malformed regions are collected into the returned errors
// and the document remains executable.
func Parse(source string) (*Document, []ParseError) {
	p := &parser{
		lines: strings.Split(source, "\n"),
		used:  make(map[string]int),
	}

	p.run()

	return &p.doc, p.errs
}

type parser struct {
	lines []string
	pos   int // index of next unconsumed line

	doc  Document
	errs []ParseError

	section   Section
	used      map[string]int // section base-name occurrence counts
	ifDepth   int
	text      []string
	textStart int
}

func (p *parser) run() {
	p.frontmatter()

	p.section = Section{Name: p.uniqueName("main")}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```"):
			p.flushText()
			p.fence(trimmed)

		case isHeading(trimmed):
			p.flushText()
			p.heading(trimmed)
			p.pos++

		default:
			if len(p.text) == 0 {
				p.textStart = p.pos + 1
			}

			p.text = append(p.text, line)
			p.pos++
		}
	}

	p.flushText()

	if p.ifDepth > 0 {
		warnf(&p.errs, len(p.lines), "%d unclosed if branch(es) at end of document", p.ifDepth)
	}

	p.endSection()
}

// frontmatter consumes an optional YAML metadata header at the very top.
func (p *parser) frontmatter() {
	if len(p.lines) == 0 || strings.TrimSpace(p.lines[0]) != "---" {
		return
	}

	for i := 1; i < len(p.lines); i++ {
		if strings.TrimSpace(p.lines[i]) == "---" {
			meta, err := parseFrontmatter(strings.Join(p.lines[1:i], "\n"))
			if err != nil {
				warnf(&p.errs, 1, "malformed frontmatter: %v", err)
			} else {
				p.doc.Meta = meta
			}

			p.pos = i + 1

			return
		}
	}

	// No closing delimiter: the opening line is ordinary prose.
	warnf(&p.errs, 1, "unterminated frontmatter delimiter")
}

func isHeading(trimmed string) bool {
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}

	rest := strings.TrimLeft(trimmed, "#")

	return len(trimmed)-len(rest) <= 6 &&
		(rest == "" || strings.HasPrefix(rest, " "))
}

// heading closes the current section and opens a new one.
func (p *parser) heading(trimmed string) {
	if p.ifDepth > 0 {
		warnf(
			&p.errs,
			p.pos+1,
			"%d unclosed if branch(es) at section boundary",
			p.ifDepth,
		)

		p.ifDepth = 0
	}

	p.endSection()

	title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))

	name := p.uniqueName(slugify(title))
	if n := p.used[slugify(title)]; n > 1 {
		warnf(
			&p.errs,
			p.pos+1,
			"duplicate section name %q renamed to %q", slugify(title), name,
		)
	}

	p.section = Section{Name: name, Title: title}
}

// endSection appends the current section unless it is an unused implicit one.
func (p *parser) endSection() {
	empty := p.section.Title == "" && len(p.section.Blocks) == 0

	// Keep an empty implicit section only when the document has nothing else.
	if empty && (len(p.doc.Sections) > 0 || p.pos < len(p.lines)) {
		return
	}

	p.doc.Sections = append(p.doc.Sections, p.section)
	p.section = Section{}
}

func (p *parser) uniqueName(base string) string {
	p.used[base]++
	if n := p.used[base]; n > 1 {
		return base + "-" + strconv.Itoa(n)
	}

	return base
}

// slugify derives a navigation identifier from a heading.
func slugify(title string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)

			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
			}

			dash = true
		}
	}

	name := strings.TrimRight(b.String(), "-")
	if name == "" {
		name = "section"
	}

	return name
}

func (p *parser) flushText() {
	if len(p.text) == 0 {
		return
	}

	body := strings.Trim(strings.Join(p.text, "\n"), "\n")
	end := p.textStart + len(p.text) - 1
	p.text = nil

	if strings.TrimSpace(body) == "" {
		return
	}

	p.section.Blocks = append(p.section.Blocks, Block{
		Kind: KindText,
		Body: body,
		Span: Span{Start: p.textStart, End: end},
	})
}

// fence handles one fence line and any body it opens.
func (p *parser) fence(trimmed string) {
	open := p.pos + 1 // 1-based fence line
	info := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	tag, params := parseInfo(info)

	switch tag {
	case "":
		if p.ifDepth > 0 {
			p.ifDepth--
			p.marker(KindEndIf, nil, open)
			p.pos++

			return
		}

		p.opaque("", open)

	case "if":
		if params["cond"] == "" {
			warnf(&p.errs, open, "if block without cond parameter, branch defaults to true")
		}

		p.ifDepth++
		p.marker(KindIf, params, open)
		p.pos++

	case "else":
		if p.ifDepth == 0 {
			warnf(&p.errs, open, "else without matching if")
		}

		p.marker(KindElse, params, open)
		p.pos++

	case "state", "set", "form", "nav", "panel", "map":
		body, end, ok := p.captureBody(open)
		if !ok {
			return
		}

		p.typedBlock(tag, params, body, Span{Start: open, End: end})

	default:
		p.opaque(tag, open)
	}
}

// marker appends a bodiless branch marker block.
func (p *parser) marker(kind Kind, params map[string]string, line int) {
	p.section.Blocks = append(p.section.Blocks, Block{
		Kind:   kind,
		Params: params,
		Span:   Span{Start: line, End: line},
	})
}

// captureBody consumes lines up to the closing fence.
// Reports false when the fence is unterminated, in which case the partial
// block is discarded per the fail-soft contract.
func (p *parser) captureBody(open int) (body string, end int, ok bool) {
	for i := p.pos + 1; i < len(p.lines); i++ {
		if strings.TrimSpace(p.lines[i]) == "```" {
			body = strings.Join(p.lines[p.pos+1:i], "\n")
			p.pos = i + 1

			return body, i + 1, true
		}
	}

	errorf(&p.errs, open, "unterminated fence at end of document")

	p.pos = len(p.lines)

	return "", 0, false
}

// opaque captures an untagged or unrecognized fence verbatim.
func (p *parser) opaque(tag string, open int) {
	body, end, ok := p.captureBody(open)
	if !ok {
		return
	}

	p.section.Blocks = append(p.section.Blocks, Block{
		Kind: KindOpaque,
		Tag:  tag,
		Body: body,
		Span: Span{Start: open, End: end},
	})
}

// typedBlock sub-parses an executor block body and appends the result.
// A sub-grammar failure yields an inert invalid block.
func (p *parser) typedBlock(
	tag string,
	params map[string]string,
	body string,
	span Span,
) {
	block := Block{
		Kind:   kindForTag(tag),
		Body:   body,
		Params: params,
		Span:   span,
	}

	var bad *ParseError

	switch block.Kind {
	case KindState, KindSet:
		block.Assigns, bad = parseAssigns(body, span.Start+1)
	case KindForm:
		block.Fields, bad = parseFields(body, span.Start+1, &p.errs)
	case KindPanel:
		block.Entries, bad = parseEntries(body, span.Start+1)
	case KindMap:
		block.Tiles, bad = parseTiles(body, span.Start+1, &p.errs)
	case KindNav:
		if params["target"] == "" {
			bad = &ParseError{
				Msg:  "missing target parameter",
				Line: span.Start,
			}
		}
	}

	if bad != nil {
		errorf(&p.errs, bad.Line, "%s block: %s", tag, bad.Msg)

		block = Block{
			Kind: KindInvalid,
			Tag:  tag,
			Body: body,
			Span: span,
			Err:  bad.Msg,
		}
	}

	p.section.Blocks = append(p.section.Blocks, block)
}

func kindForTag(tag string) Kind {
	switch tag {
	case "state":
		return KindState
	case "set":
		return KindSet
	case "form":
		return KindForm
	case "nav":
		return KindNav
	case "panel":
		return KindPanel
	case "map":
		return KindMap
	default:
		return KindOpaque
	}
}

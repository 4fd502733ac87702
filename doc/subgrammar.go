package doc

import (
	"strconv"
	"strings"
)

// parseInfo splits a fence info string into its tag and key=value parameters.
// Values may be double-quoted to include spaces.
func parseInfo(info string) (tag string, params map[string]string) {
	tokens := splitTokens(info)
	if len(tokens) == 0 {
		return "", nil
	}

	tag = tokens[0]

	if len(tokens) > 1 {
		params = make(map[string]string, len(tokens)-1)

		for _, tok := range tokens[1:] {
			if i := strings.IndexByte(tok, '='); i >= 0 {
				params[tok[:i]] = unquote(tok[i+1:])
			} else {
				// Bare words act as boolean flags.
				params[tok] = "true"
			}
		}
	}

	return tag, params
}

// splitTokens splits on spaces outside double quotes.
// Quotes are retained so callers can distinguish quoted values.
func splitTokens(s string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quoted bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '\\' && quoted && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
		case c == '"':
			quoted = !quoted

			cur.WriteByte(c)
		case (c == ' ' || c == '\t') && !quoted:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}

	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}

	return tokens
}

// unquote strips surrounding double quotes and unescapes \" and \\.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}

	inner := s[1 : len(s)-1]
	if !strings.ContainsRune(inner, '\\') {
		return inner
	}

	var b strings.Builder

	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			b.WriteByte(inner[i])

			continue
		}

		b.WriteByte(inner[i])
	}

	return b.String()
}

// stripComment removes a trailing # comment outside string literals.
func stripComment(line string) string {
	quoted := false

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case '#':
			if !quoted {
				return line[:i]
			}
		}
	}

	return line
}

// isPath reports whether s is a valid assignment target:
// an identifier chain with dots and integer indexes, optionally $-prefixed.
func isPath(s string) bool {
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return false
	}

	for _, seg := range splitPathSegments(s) {
		if seg == "" {
			return false
		}

		if seg[0] == '[' {
			n := strings.TrimSuffix(strings.TrimPrefix(seg, "["), "]")
			if _, err := strconv.Atoi(n); err != nil {
				return false
			}

			continue
		}

		if !isIdent(seg) {
			return false
		}
	}

	return true
}

// splitPathSegments splits "a.b[0].c" into ["a" "b" "[0]" "c"].
// Malformed input yields an empty segment, which callers reject.
func splitPathSegments(s string) []string {
	var (
		segs []string
		cur  strings.Builder
	)

	flush := func() {
		segs = append(segs, cur.String())
		cur.Reset()
	}

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			flush()
		case '[':
			if cur.Len() > 0 || len(segs) == 0 {
				flush()
			}

			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return []string{""}
			}

			segs = append(segs, s[i:i+j+1])
			i += j

			// A dot after "]" is a separator, not a leading dot.
			if i+1 < len(s) && s[i+1] == '.' {
				i++
			}
		default:
			cur.WriteByte(s[i])
		}
	}

	if cur.Len() > 0 {
		flush()
	}

	return segs
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		alpha := r == '_' ||
			r >= 'a' && r <= 'z' ||
			r >= 'A' && r <= 'Z'
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}

	return true
}

// parseAssigns parses `path = expression` lines.
// Array and object literals may span lines: the expression continues until
// its brackets balance.
func parseAssigns(body string, firstLine int) ([]Assign, *ParseError) {
	var assigns []Assign

	lines := strings.Split(body, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(stripComment(lines[i]))
		if line == "" {
			continue
		}

		lineNum := firstLine + i

		eq := assignIndex(line)
		if eq < 0 {
			return nil, &ParseError{
				Msg:  "expected `path = expression`, got " + strconv.Quote(line),
				Line: lineNum,
			}
		}

		path := strings.TrimSpace(line[:eq])
		expr := strings.TrimSpace(line[eq+1:])

		if !isPath(path) {
			return nil, &ParseError{
				Msg:  "invalid path " + strconv.Quote(path),
				Line: lineNum,
			}
		}

		// Consume continuation lines while brackets remain open.
		for bracketDepth(expr) > 0 && i+1 < len(lines) {
			i++
			expr += "\n" + stripComment(lines[i])
		}

		if bracketDepth(expr) > 0 {
			return nil, &ParseError{
				Msg:  "unterminated literal for " + strconv.Quote(path),
				Line: lineNum,
			}
		}

		if strings.TrimSpace(expr) == "" {
			return nil, &ParseError{
				Msg:  "empty expression for " + strconv.Quote(path),
				Line: lineNum,
			}
		}

		assigns = append(assigns, Assign{
			Path: path,
			Expr: strings.TrimSpace(expr),
			Line: lineNum,
		})
	}

	return assigns, nil
}

// assignIndex locates the assignment '=' in a line, skipping string literals
// and comparison operators. Returns -1 when the line is not an assignment.
func assignIndex(line string) int {
	quoted := false

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case '=':
			if quoted {
				continue
			}

			if i+1 < len(line) && line[i+1] == '=' {
				return -1
			}

			if i > 0 && strings.ContainsRune("!<>", rune(line[i-1])) {
				return -1
			}

			return i
		}
	}

	return -1
}

// bracketDepth returns the number of unclosed brackets and braces outside
// string literals.
func bracketDepth(s string) int {
	depth := 0
	quoted := false

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if quoted {
				i++
			}
		case '"':
			quoted = !quoted
		case '[', '{':
			if !quoted {
				depth++
			}
		case ']', '}':
			if !quoted {
				depth--
			}
		}
	}

	return depth
}

// Form field types accepted by the form sub-grammar.
var fieldTypes = map[string]bool{
	"text":     true,
	"number":   true,
	"email":    true,
	"textarea": true,
	"checkbox": true,
	"select":   true,
}

// parseFields parses form field declarations: `name: type key=value...`.
func parseFields(
	body string,
	firstLine int,
	warns *[]ParseError,
) ([]Field, *ParseError) {
	var fields []Field

	lines := strings.Split(body, "\n")

	for i, raw := range lines {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		lineNum := firstLine + i

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, &ParseError{
				Msg:  "expected `name: type ...`, got " + strconv.Quote(line),
				Line: lineNum,
			}
		}

		name := strings.TrimSpace(line[:colon])
		if !isPath(name) {
			return nil, &ParseError{
				Msg:  "invalid field name " + strconv.Quote(name),
				Line: lineNum,
			}
		}

		tokens := splitTokens(strings.TrimSpace(line[colon+1:]))
		if len(tokens) == 0 {
			return nil, &ParseError{
				Msg:  "field " + strconv.Quote(name) + " missing type",
				Line: lineNum,
			}
		}

		if !fieldTypes[tokens[0]] {
			return nil, &ParseError{
				Msg: "field " + strconv.Quote(name) +
					" has unknown type " + strconv.Quote(tokens[0]),
				Line: lineNum,
			}
		}

		field := Field{
			Name: strings.TrimPrefix(name, "$"),
			Type: tokens[0],
			Line: lineNum,
		}

		for _, tok := range tokens[1:] {
			eq := strings.IndexByte(tok, '=')
			if eq < 0 {
				warnf(warns, lineNum, "ignoring malformed field attribute %q", tok)

				continue
			}

			key, val := tok[:eq], unquote(tok[eq+1:])

			switch key {
			case "label":
				field.Label = val
			case "required":
				field.Required, _ = strconv.ParseBool(val)
			case "default":
				field.Default = val
			case "validate":
				field.Validate = val
			case "options":
				field.Options = strings.Split(val, ",")
			default:
				warnf(warns, lineNum, "ignoring unknown field attribute %q", key)
			}
		}

		if field.Label == "" {
			field.Label = field.Name
		}

		fields = append(fields, field)
	}

	if len(fields) == 0 {
		return nil, &ParseError{Msg: "form declares no fields", Line: firstLine}
	}

	return fields, nil
}

// parseEntries parses panel body lines: `label: text`.
func parseEntries(body string, firstLine int) ([]Entry, *ParseError) {
	var entries []Entry

	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		lineNum := firstLine + i

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, &ParseError{
				Msg:  "expected `label: text`, got " + strconv.Quote(line),
				Line: lineNum,
			}
		}

		entries = append(entries, Entry{
			Key:  strings.TrimSpace(line[:colon]),
			Raw:  strings.TrimSpace(line[colon+1:]),
			Line: lineNum,
		})
	}

	return entries, nil
}

// parseTiles parses map body lines: `tile X,Y key=value...`.
func parseTiles(
	body string,
	firstLine int,
	warns *[]ParseError,
) ([]Tile, *ParseError) {
	var tiles []Tile

	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		lineNum := firstLine + i
		tokens := splitTokens(line)

		if tokens[0] != "tile" || len(tokens) < 2 {
			return nil, &ParseError{
				Msg:  "expected `tile X,Y ...`, got " + strconv.Quote(line),
				Line: lineNum,
			}
		}

		x, y, ok := parseCoord(tokens[1])
		if !ok {
			return nil, &ParseError{
				Msg:  "invalid tile coordinate " + strconv.Quote(tokens[1]),
				Line: lineNum,
			}
		}

		tile := Tile{X: x, Y: y, Line: lineNum}

		for _, tok := range tokens[2:] {
			eq := strings.IndexByte(tok, '=')
			if eq < 0 {
				warnf(warns, lineNum, "ignoring malformed tile attribute %q", tok)

				continue
			}

			key, val := tok[:eq], unquote(tok[eq+1:])

			switch key {
			case "sprite":
				tile.Sprite = val
			case "label":
				tile.Label = val
			case "when":
				tile.When = val
			default:
				warnf(warns, lineNum, "ignoring unknown tile attribute %q", key)
			}
		}

		tiles = append(tiles, tile)
	}

	return tiles, nil
}

func parseCoord(s string) (x, y int, ok bool) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return 0, 0, false
	}

	x, errX := strconv.Atoi(s[:comma])
	y, errY := strconv.Atoi(s[comma+1:])

	return x, y, errX == nil && errY == nil
}

package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Instruction is one element of the render stream: a host-agnostic
// description of output the embedding application turns into UI.
// Instructions carry fully resolved content; the host never interpolates.
type Instruction interface {
	// Type returns the wire tag identifying the instruction shape.
	Type() string
}

// Text is rendered prose, already interpolated.
type Text struct {
	Content string `json:"content"`
}

// Type implements Instruction.
func (Text) Type() string { return "text" }

// FormField describes one input the host must collect before resuming.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required,omitempty"`
	Default  string   `json:"default,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Type implements Instruction.
func (FormField) Type() string { return "form_field" }

// PanelWidget is a titled key/value display block.
type PanelWidget struct {
	Title   string       `json:"title,omitempty"`
	Entries []PanelEntry `json:"entries"`
}

// PanelEntry is one labeled line of a panel, already interpolated.
type PanelEntry struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Type implements Instruction.
func (PanelWidget) Type() string { return "panel" }

// MapGrid is a 2D tile layout. Only tiles whose condition held at render
// time appear; the host draws the rest of the grid empty.
type MapGrid struct {
	Rows  int       `json:"rows"`
	Cols  int       `json:"cols"`
	Tiles []MapTile `json:"tiles"`
}

// MapTile is one occupied cell of a map grid.
type MapTile struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Sprite string `json:"sprite,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Type implements Instruction.
func (MapGrid) Type() string { return "map" }

// Cells lays the tiles out on a Rows x Cols rune grid for text hosts:
// empty fills vacant cells, occupied cells show the first rune of the
// sprite name, or '#' when the tile has none.
func (g MapGrid) Cells(empty rune) [][]rune {
	cells := make([][]rune, g.Rows)
	for y := range cells {
		row := make([]rune, g.Cols)
		for x := range row {
			row[x] = empty
		}

		cells[y] = row
	}

	for _, tile := range g.Tiles {
		glyph := '#'
		if tile.Sprite != "" {
			glyph = []rune(tile.Sprite)[0]
		}

		cells[tile.Y][tile.X] = glyph
	}

	return cells
}

// RenderError surfaces a recoverable execution error in-stream so the host
// can show it where it occurred instead of losing it to a log.
type RenderError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Type implements Instruction.
func (RenderError) Type() string { return "error" }

// Stream is the ordered instruction list produced by executing a section.
type Stream []Instruction

// streamEnvelope is the wire form of one instruction: the type tag beside
// the flattened payload.
type streamEnvelope struct {
	Type string `json:"type"`
}

// MarshalJSON implements json.Marshaler, emitting each instruction as an
// object with an embedded "type" tag.
func (s Stream) MarshalJSON() ([]byte, error) {
	items := make([]json.RawMessage, len(s))

	for i, inst := range s {
		payload, err := json.Marshal(inst)
		if err != nil {
			return nil, err
		}

		tag, err := json.Marshal(streamEnvelope{Type: inst.Type()})
		if err != nil {
			return nil, err
		}

		// Splice the tag into the payload object.
		if len(payload) < 2 || payload[0] != '{' {
			return nil, fmt.Errorf(
				"instruction %q did not marshal to an object", inst.Type(),
			)
		}

		merged := append([]byte{}, tag[:len(tag)-1]...)
		if string(payload) != "{}" {
			merged = append(merged, ',')
			merged = append(merged, payload[1:len(payload)-1]...)
		}

		merged = append(merged, '}')
		items[i] = merged
	}

	return json.Marshal(items)
}

// UnmarshalJSON implements json.Unmarshaler, dispatching on the "type" tag.
func (s *Stream) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage

	err := json.Unmarshal(data, &items)
	if err != nil {
		return err
	}

	out := make(Stream, 0, len(items))

	for _, item := range items {
		var env streamEnvelope

		err := json.Unmarshal(item, &env)
		if err != nil {
			return err
		}

		inst, err := decodeInstruction(env.Type, item)
		if err != nil {
			return err
		}

		out = append(out, inst)
	}

	*s = out

	return nil
}

func decodeInstruction(tag string, data []byte) (Instruction, error) {
	switch tag {
	case "text":
		var inst Text

		return inst, json.Unmarshal(data, &inst)
	case "form_field":
		var inst FormField

		return inst, json.Unmarshal(data, &inst)
	case "panel":
		var inst PanelWidget

		return inst, json.Unmarshal(data, &inst)
	case "map":
		var inst MapGrid

		return inst, json.Unmarshal(data, &inst)
	case "error":
		var inst RenderError

		return inst, json.Unmarshal(data, &inst)
	default:
		return nil, ErrCorruptContext.With(
			slog.String("instruction", tag),
		)
	}
}

package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/fable/engine"
)

func writeDocument(t *testing.T, source string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.md")

	source = strings.ReplaceAll(source, "~~~", "```")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	os.Stdout = w

	defer func() { os.Stdout = old }()

	done := make(chan string)

	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	fn()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return <-done
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		input string
		want  engine.Value
	}{
		{"true", engine.BoolValue(true)},
		{"false", engine.BoolValue(false)},
		{"null", engine.Null()},
		{"42", engine.Number(42)},
		{"-1.5", engine.Number(-1.5)},
		{"hello", engine.StringValue("hello")},
		{"", engine.StringValue("")},
		{"1x", engine.StringValue("1x")},
	}

	for _, tt := range tests {
		if got := parseScalar(tt.input); !got.Equal(tt.want) {
			t.Errorf("parseScalar(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestSplitPair(t *testing.T) {
	tests := []struct {
		input string
		name  string
		value string
		ok    bool
	}{
		{"a=1", "a", "1", true},
		{"name=Ada Lovelace", "name", "Ada Lovelace", true},
		{"a=b=c", "a", "b=c", true},
		{"a=", "a", "", true},
		{"=1", "", "", false},
		{"bare", "", "", false},
	}

	for _, tt := range tests {
		name, value, ok := splitPair(tt.input)
		if name != tt.name || value != tt.value || ok != tt.ok {
			t.Errorf("splitPair(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, name, value, ok, tt.name, tt.value, tt.ok)
		}
	}
}

func TestOpenSourceFile(t *testing.T) {
	path := writeDocument(t, "# Intro\n\nHello.\n")

	source, err := openSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	data, err := io.ReadAll(source)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(data), "Hello.") {
		t.Errorf("unexpected content %q", string(data))
	}
}

func TestOpenSourceMissing(t *testing.T) {
	if _, err := openSource("/nonexistent/doc.md"); err == nil {
		t.Error("openSource should fail for a missing file")
	}
}

func TestLoadDocument(t *testing.T) {
	path := writeDocument(t, `# Intro

Hello.

# Room

Bye.
`)

	d, diags, err := loadDocument(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}

	if len(d.Sections) != 2 {
		t.Errorf("got %d sections, want 2", len(d.Sections))
	}
}

func TestCheckRun(t *testing.T) {
	path := writeDocument(t, `# Intro

Hello.

# Room

Bye.
`)

	check := &Check{Source: path}

	out := captureStdout(t, func() {
		if err := check.Run(context.Background()); err != nil {
			t.Errorf("check failed: %v", err)
		}
	})

	if !strings.Contains(out, "2 section(s), 2 block(s)") {
		t.Errorf("missing summary in output:\n%s", out)
	}

	for _, name := range []string{"intro", "room"} {
		if !strings.Contains(out, name) {
			t.Errorf("missing section %q in output:\n%s", name, out)
		}
	}
}

func TestCheckRunReportsErrors(t *testing.T) {
	path := writeDocument(t, `# Intro

~~~form
not a field line
~~~
`)

	check := &Check{Source: path}

	_ = captureStdout(t, func() {
		err := check.Run(context.Background())

		var checkErr *CheckError
		if !errors.As(err, &checkErr) {
			t.Fatalf("got %v, want *CheckError", err)
		}

		if checkErr.Count != 1 {
			t.Errorf("got %d errors, want 1", checkErr.Count)
		}
	})
}

func TestExecRun(t *testing.T) {
	path := writeDocument(t, `# Intro

~~~form
name: text label="Name"
~~~

Hello {{name}}!
`)

	exec := &Exec{
		Source: path,
		Input:  []string{"name=Ada"},
		Format: "text",
	}

	out := captureStdout(t, func() {
		if err := exec.Run(context.Background()); err != nil {
			t.Errorf("exec failed: %v", err)
		}
	})

	if !strings.Contains(out, "? Name [name text]") {
		t.Errorf("missing form prompt in output:\n%s", out)
	}

	if !strings.Contains(out, "Hello Ada!") {
		t.Errorf("missing resumed text in output:\n%s", out)
	}
}

func TestExecRunSeedAndState(t *testing.T) {
	path := writeDocument(t, `# Intro

Player is {{player.name}}.
`)

	exec := &Exec{
		Source: path,
		Set:    []string{"player.name=Zoe"},
		Format: "text",
		State:  true,
	}

	out := captureStdout(t, func() {
		if err := exec.Run(context.Background()); err != nil {
			t.Errorf("exec failed: %v", err)
		}
	})

	if !strings.Contains(out, "Player is Zoe.") {
		t.Errorf("missing interpolated text in output:\n%s", out)
	}

	if !strings.Contains(out, "name: Zoe") {
		t.Errorf("missing state dump in output:\n%s", out)
	}
}

func TestExecRunJSONFormat(t *testing.T) {
	path := writeDocument(t, `# Intro

Hello.
`)

	exec := &Exec{Source: path, Format: "json"}

	out := captureStdout(t, func() {
		if err := exec.Run(context.Background()); err != nil {
			t.Errorf("exec failed: %v", err)
		}
	})

	if !strings.Contains(out, `"type": "text"`) {
		t.Errorf("missing typed instruction in output:\n%s", out)
	}
}

func TestExecRunBadPair(t *testing.T) {
	path := writeDocument(t, "# Intro\n\nHello.\n")

	exec := &Exec{
		Source: path,
		Set:    []string{"missing-equals"},
		Format: "text",
	}

	if err := exec.Run(context.Background()); err == nil {
		t.Error("exec should reject a malformed --set pair")
	}
}

func TestRenderGrid(t *testing.T) {
	grid := engine.MapGrid{
		Rows: 2,
		Cols: 3,
		Tiles: []engine.MapTile{
			{X: 1, Y: 0, Sprite: "key", Label: "Key"},
			{X: 2, Y: 1, Sprite: "door"},
		},
	}

	got := renderGrid(grid)

	want := ".k.\n..d\n  (1,0) Key\n\n"
	if got != want {
		t.Errorf("renderGrid = %q, want %q", got, want)
	}
}

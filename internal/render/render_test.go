package render

import (
	"strings"
	"testing"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/placeholder"
)

func para(style string, runs ...*doctree.Run) *doctree.Paragraph {
	return &doctree.Paragraph{Style: style, Runs: runs}
}

func run(text string) *doctree.Run { return &doctree.Run{Text: text} }

func cell(text string) *doctree.Cell {
	return &doctree.Cell{Paragraphs: []*doctree.Paragraph{para("", run(text))}}
}

func sample() *doctree.Document {
	bold := &doctree.Run{Text: "Acme ", Style: doctree.Style{Bold: true}}
	return &doctree.Document{
		Paragraphs: []*doctree.Paragraph{
			para("Heading1", run("Agreement")),
			para("", run("Between "), bold, run("and [Investor]_x")),
			para("", run("   ")),
		},
		Tables: []*doctree.Table{{Rows: []*doctree.Row{
			{Cells: []*doctree.Cell{cell("Name"), cell("[Investor]")}},
			{Cells: []*doctree.Cell{cell(""), cell("")}},
			{Cells: []*doctree.Cell{cell("Date"), cell("today")}},
		}}},
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(sample())
	want := "Agreement\n\nBetween Acme and [Investor]_x\n\n\n[TABLE]\n\nName | [Investor]\n\n | \n\nDate | today\n\n[END TABLE]\n"
	if got != want {
		t.Fatalf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(sample())
	for _, want := range []string{
		"# Agreement\n",
		`Between **Acme** and \[Investor\]\_x`,
		"| Name | \\[Investor\\] |\n| --- | --- |\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected markdown to contain %q, got:\n%s", want, got)
		}
	}
}

func TestHTML_HighlightsPending(t *testing.T) {
	got, err := HTML(sample(), []placeholder.Placeholder{placeholder.New("Investor")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "<h1>Agreement</h1>") {
		t.Errorf("expected heading, got %s", got)
	}
	if !strings.Contains(got, "<strong>Acme</strong>") {
		t.Errorf("expected bold run, got %s", got)
	}
	if n := strings.Count(got, `<mark class="placeholder">[Investor]</mark>`); n != 2 {
		t.Errorf("expected 2 highlighted tokens, got %d in %s", n, got)
	}
	if !strings.Contains(got, "<table>") {
		t.Errorf("expected table, got %s", got)
	}
}

func TestHTML_NoPending(t *testing.T) {
	got, err := HTML(sample(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<mark") {
		t.Errorf("expected no highlights, got %s", got)
	}
}

func TestChanges(t *testing.T) {
	before := "Title\nName: [Name]\nDate: [Date]\n"
	after := "Title\nName: Ada\nDate: [Date]\n"
	lines, truncated := Changes(before, after)
	if truncated {
		t.Fatal("expected no truncation")
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 changed lines, got %+v", lines)
	}
	if lines[0].Type != LineRemoved || lines[0].Text != "Name: [Name]" || lines[0].OldLine != 2 {
		t.Errorf("unexpected removed line %+v", lines[0])
	}
	if lines[1].Type != LineAdded || lines[1].Text != "Name: Ada" || lines[1].NewLine != 2 {
		t.Errorf("unexpected added line %+v", lines[1])
	}
}

func TestChanges_Truncated(t *testing.T) {
	big := strings.Repeat("x\n", MaxDiffLines)
	if _, truncated := Changes(big, big); !truncated {
		t.Fatal("expected truncation for oversized input")
	}
}

func TestHeadingLevel(t *testing.T) {
	cases := map[string]int{"Heading1": 1, "heading 3": 3, "Title": 1, "Normal": 0, "Heading9": 0, "": 0}
	for style, want := range cases {
		if got := headingLevel(style); got != want {
			t.Errorf("headingLevel(%q): expected %d, got %d", style, want, got)
		}
	}
}

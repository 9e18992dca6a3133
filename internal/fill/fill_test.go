package fill

import (
	"strings"
	"testing"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/placeholder"
)

func para(runs ...string) *doctree.Paragraph {
	p := &doctree.Paragraph{}
	for _, r := range runs {
		p.Runs = append(p.Runs, &doctree.Run{Text: r})
	}
	return p
}

func runTexts(p *doctree.Paragraph) []string {
	out := make([]string, len(p.Runs))
	for i, r := range p.Runs {
		out[i] = r.Text
	}
	return out
}

func TestReplaceInParagraph_SingleRunKeepsSiblings(t *testing.T) {
	p := para("Name: ", "[X]", " (confirmed)")
	p.Runs[0].Style = doctree.Style{Bold: true}
	p.Runs[2].Style = doctree.Style{Italic: true, Ref: "Emphasis"}

	outcome, n := ReplaceInParagraph(p, "[X]", "Acme Corp")
	if outcome != Resolved || n != 1 {
		t.Fatalf("expected resolved/1, got %s/%d", outcome, n)
	}
	want := []string{"Name: ", "Acme Corp", " (confirmed)"}
	got := runTexts(p)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected runs %q, got %q", want, got)
		}
	}
	if !p.Runs[0].Style.Bold || p.Runs[2].Style.Ref != "Emphasis" || !p.Runs[2].Style.Italic {
		t.Errorf("expected sibling styles untouched, got %+v and %+v", p.Runs[0].Style, p.Runs[2].Style)
	}
}

func TestReplaceInParagraph_CrossRunKeepsText(t *testing.T) {
	p := para("Amount: $[A", "MT]")
	outcome, _ := ReplaceInParagraph(p, "[AMT]", "500")
	if outcome != Resolved {
		t.Fatalf("expected resolved, got %s", outcome)
	}
	if got := p.Text(); got != "Amount: $500" {
		t.Fatalf("expected %q, got %q", "Amount: $500", got)
	}
}

func TestReplaceInParagraph_CrossRunRemainder(t *testing.T) {
	p := para("Dear [Fi", "rst", " Name], welcome", " aboard")
	ReplaceInParagraph(p, "[First Name]", "Ada")
	if got := p.Text(); got != "Dear Ada, welcome aboard" {
		t.Fatalf("expected %q, got %q", "Dear Ada, welcome aboard", got)
	}
	want := []string{"Dear ", "Ada", ", welcome aboard", ""}
	got := runTexts(p)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected runs %q, got %q", want, got)
		}
	}
}

func TestReplaceInParagraph_TooFewRunsKeepsRemainder(t *testing.T) {
	p := para("pre [A", "B] post")
	ReplaceInParagraph(p, "[AB]", "v")
	if got := p.Text(); got != "pre v post" {
		t.Fatalf("expected %q, got %q", "pre v post", got)
	}
}

func TestReplaceInParagraph_MultipleOccurrences(t *testing.T) {
	p := para("[X] and [X]", " and [", "X]")
	outcome, n := ReplaceInParagraph(p, "[X]", "y")
	if outcome != Resolved || n != 3 {
		t.Fatalf("expected resolved/3, got %s/%d", outcome, n)
	}
	if got := p.Text(); got != "y and y and y" {
		t.Fatalf("expected %q, got %q", "y and y and y", got)
	}
}

func TestReplaceInParagraph_ValueContainsToken(t *testing.T) {
	p := para("a [X] b")
	outcome, n := ReplaceInParagraph(p, "[X]", "[X][X]")
	if outcome != Resolved || n != 1 {
		t.Fatalf("expected resolved/1, got %s/%d", outcome, n)
	}
	if got := p.Text(); got != "a [X][X] b" {
		t.Fatalf("expected %q, got %q", "a [X][X] b", got)
	}
}

// An empty run stands in for a run that holds only a tab or break. Pieces
// are placed by position, so the value moves into that run.
func TestReplaceInParagraph_RebuildAssignsPiecesByPosition(t *testing.T) {
	p := para("Hi [Na", "", "me] x")
	if outcome, n := ReplaceInParagraph(p, "[Name]", "Ann"); outcome != Resolved || n != 1 {
		t.Fatalf("expected Resolved/1, got %v/%d", outcome, n)
	}
	want := []string{"Hi ", "Ann", " x"}
	for i, r := range p.Runs {
		if r.Text != want[i] {
			t.Errorf("run %d: expected %q, got %q", i, want[i], r.Text)
		}
	}
}

func TestReplaceInParagraph_Absent(t *testing.T) {
	p := para("nothing here")
	if outcome, n := ReplaceInParagraph(p, "[X]", "y"); outcome != Absent || n != 0 {
		t.Fatalf("expected absent/0, got %s/%d", outcome, n)
	}
	if outcome, _ := ReplaceInParagraph(&doctree.Paragraph{}, "[X]", "y"); outcome != Absent {
		t.Fatalf("expected absent for empty paragraph, got %s", outcome)
	}
}

func fullDoc() *doctree.Document {
	return &doctree.Document{
		Paragraphs: []*doctree.Paragraph{para("Company: [Com", "pany]"), para("Date: [Date]")},
		Tables: []*doctree.Table{{Rows: []*doctree.Row{{Cells: []*doctree.Cell{
			{
				Paragraphs: []*doctree.Paragraph{para("[Company]")},
				Tables: []*doctree.Table{{Rows: []*doctree.Row{{Cells: []*doctree.Cell{
					{Paragraphs: []*doctree.Paragraph{para("nested [Date]")}},
				}}}}},
			},
		}}}}},
		Headers: []*doctree.Region{{Paragraphs: []*doctree.Paragraph{para("Header [Ref]")}}},
		Footers: []*doctree.Region{{
			Paragraphs: []*doctree.Paragraph{para("Page footer [Ref]")},
			Tables: []*doctree.Table{{Rows: []*doctree.Row{{Cells: []*doctree.Cell{
				{Paragraphs: []*doctree.Paragraph{para("[Company]")}},
			}}}}},
		}},
	}
}

func TestFill_CoversAllRegions(t *testing.T) {
	doc := fullDoc()
	values := placeholder.ValueMap{"Company": "Acme", "Date": "today", "Ref": "R-1"}
	rep := Fill(doc, values, Options{})

	for _, p := range doc.AllParagraphs() {
		for name := range values {
			if strings.Contains(p.Text(), placeholder.Token(name)) {
				t.Errorf("expected %s to be filled, paragraph is %q", placeholder.Token(name), p.Text())
			}
		}
	}
	if rep.Replaced["Company"] != 3 {
		t.Errorf("expected 3 Company replacements, got %d", rep.Replaced["Company"])
	}
	if _, ok := rep.Replaced["[Company]"]; ok {
		t.Error("expected report keyed by name, not token")
	}
	if rep.Total() != 7 {
		t.Errorf("expected 7 replacements, got %d", rep.Total())
	}
	if len(rep.Exhausted) != 0 {
		t.Errorf("expected no exhausted tokens, got %v", rep.Exhausted)
	}
}

func TestFill_HeaderOnlyPlaceholder(t *testing.T) {
	doc := fullDoc()
	scanned := placeholder.Scan(doc, placeholder.ScanOptions{})
	for _, p := range scanned {
		if p.Name == "Ref" {
			t.Fatal("expected Ref to be missing from a body-only scan")
		}
	}
	Fill(doc, placeholder.ValueMap{"Ref": "R-1"}, Options{})
	if got := doc.Headers[0].Paragraphs[0].Text(); got != "Header R-1" {
		t.Fatalf("expected header filled, got %q", got)
	}
	if got := doc.Footers[0].Paragraphs[0].Text(); got != "Page footer R-1" {
		t.Fatalf("expected footer filled, got %q", got)
	}
}

func TestFill_ScanRoundTrip(t *testing.T) {
	doc := fullDoc()
	scanned := placeholder.Scan(doc, placeholder.ScanOptions{IncludeHeaders: true})
	values := placeholder.ValueMap{}
	for _, p := range scanned {
		values[p.Name] = "v-" + strings.ToLower(p.Name)
	}
	Fill(doc, values, Options{})
	if left := placeholder.Scan(doc, placeholder.ScanOptions{IncludeHeaders: true}); len(left) != 0 {
		t.Fatalf("expected no placeholders after fill, got %v", left)
	}
}

func TestFill_BlankAliases(t *testing.T) {
	values := placeholder.ValueMap{"Purchase Amount in $": "1,000"}

	doc := &doctree.Document{Paragraphs: []*doctree.Paragraph{
		para("pay $" + Blank + " now"),
		para("or " + Blank),
	}}
	Fill(doc, values, Options{})
	if got := doc.Paragraphs[0].Text(); got != "pay $"+Blank+" now" {
		t.Fatalf("expected blanks untouched without aliases, got %q", got)
	}

	rep := Fill(doc, values, Options{BlankAliases: true})
	if rep.Replaced["Purchase Amount in $"] != 2 {
		t.Errorf("expected blanks counted under their name, got %v", rep.Replaced)
	}
	if got := doc.Paragraphs[0].Text(); got != "pay $1,000 now" {
		t.Fatalf("expected %q, got %q", "pay $1,000 now", got)
	}
	if got := doc.Paragraphs[1].Text(); got != "or 1,000" {
		t.Fatalf("expected %q, got %q", "or 1,000", got)
	}
}

func TestFill_BlankAliasUsesLastBlankName(t *testing.T) {
	values := placeholder.ValueMap{
		"Deposit in $":         "100",
		"Purchase Amount in $": "1,000",
		"Buyer":                "Ann",
	}
	doc := &doctree.Document{Paragraphs: []*doctree.Paragraph{para("total " + Blank)}}
	Fill(doc, values, Options{BlankAliases: true})
	if got := doc.Paragraphs[0].Text(); got != "total 1,000" {
		t.Fatalf("expected %q, got %q", "total 1,000", got)
	}
}

func TestFill_EmptyValues(t *testing.T) {
	doc := fullDoc()
	rep := Fill(doc, nil, Options{})
	if rep.Total() != 0 {
		t.Fatalf("expected no replacements, got %d", rep.Total())
	}
}

package placeholder

import (
	"reflect"
	"testing"

	"github.com/dgallion1/docfill/internal/doctree"
)

func para(runs ...string) *doctree.Paragraph {
	p := &doctree.Paragraph{}
	for _, r := range runs {
		p.Runs = append(p.Runs, &doctree.Run{Text: r})
	}
	return p
}

func names(ps []Placeholder) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func sampleDoc() *doctree.Document {
	return &doctree.Document{
		Paragraphs: []*doctree.Paragraph{
			para("This agreement is between [Company", " Name] and [Investor Name]."),
			para("Signed by [Investor Name] on [Date]."),
		},
		Tables: []*doctree.Table{{
			Rows: []*doctree.Row{{
				Cells: []*doctree.Cell{
					{Paragraphs: []*doctree.Paragraph{para("[Amount]")}},
					{
						Paragraphs: []*doctree.Paragraph{para("[Date]")},
						Tables: []*doctree.Table{{
							Rows: []*doctree.Row{{Cells: []*doctree.Cell{
								{Paragraphs: []*doctree.Paragraph{para("[Nested]")}},
							}}},
						}},
					},
				},
			}},
		}},
		Headers: []*doctree.Region{{
			Part:       "word/header1.xml",
			Paragraphs: []*doctree.Paragraph{para("Confidential: [Header Only]")},
		}},
	}
}

func TestScan_OrderAndDedup(t *testing.T) {
	got := names(Scan(sampleDoc(), ScanOptions{}))
	want := []string{"Company Name", "Investor Name", "Date", "Amount", "Nested"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScan_Idempotent(t *testing.T) {
	doc := sampleDoc()
	a := Scan(doc, ScanOptions{})
	b := Scan(doc, ScanOptions{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical scans, got %v and %v", a, b)
	}
}

func TestScan_NoDuplicateNames(t *testing.T) {
	doc := &doctree.Document{Paragraphs: []*doctree.Paragraph{
		para("[A] [B] [A] [a] [B]"),
		para("[a]"),
	}}
	seen := map[string]bool{}
	for _, p := range Scan(doc, ScanOptions{}) {
		if seen[p.Name] {
			t.Fatalf("duplicate placeholder %q", p.Name)
		}
		seen[p.Name] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 case-sensitive names, got %d", len(seen))
	}
}

func TestScan_Question(t *testing.T) {
	got := Scan(&doctree.Document{Paragraphs: []*doctree.Paragraph{para("[Party Name]")}}, ScanOptions{})
	if len(got) != 1 {
		t.Fatalf("expected 1 placeholder, got %d", len(got))
	}
	want := "What should I fill in for [Party Name]?"
	if got[0].Question != want {
		t.Errorf("expected question %q, got %q", want, got[0].Question)
	}
}

func TestScan_HeadersOptional(t *testing.T) {
	doc := sampleDoc()
	for _, p := range Scan(doc, ScanOptions{}) {
		if p.Name == "Header Only" {
			t.Fatal("expected header placeholder to be skipped by default")
		}
	}
	got := names(Scan(doc, ScanOptions{IncludeHeaders: true}))
	if got[len(got)-1] != "Header Only" {
		t.Fatalf("expected header placeholder last, got %v", got)
	}
}

func TestScan_EmptyDocument(t *testing.T) {
	got := Scan(&doctree.Document{}, ScanOptions{})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestScan_BlankKeptLiteralByDefault(t *testing.T) {
	doc := &doctree.Document{Paragraphs: []*doctree.Paragraph{para(`pay $[_____________] "Purchase Amount"`)}}
	got := names(Scan(doc, ScanOptions{}))
	if len(got) != 1 || got[0] != "_____________" {
		t.Fatalf("expected literal blank name, got %v", got)
	}
}

func TestScan_BlankRename(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`pay $[_____________] (the "Purchase Amount")`, "Purchase Amount in $"},
		{`the "Valuation Cap" is $[_____________]`, "Valuation Cap in $"},
		{`"First" then "Second" then [___]`, "Second in $"},
		{`amount [   ] due`, "Amount in $"},
	}
	for _, tt := range tests {
		doc := &doctree.Document{Paragraphs: []*doctree.Paragraph{para(tt.text)}}
		got := names(Scan(doc, ScanOptions{RenameBlank: true}))
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("%q: expected [%s], got %v", tt.text, tt.want, got)
		}
	}
}

func TestExtract_QuestionAnswer(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Message: "What is the [Party Name]?"},
		{Role: RoleUser, Message: "Acme Corp"},
	}
	got := HeuristicExtractor{}.Extract(history, []Placeholder{New("Party Name")})
	want := ValueMap{"Party Name": "Acme Corp"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtract_CaseInsensitiveName(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Message: "Please give me the party name."},
		{Role: RoleUser, Message: "Acme"},
	}
	got := HeuristicExtractor{}.Extract(history, []Placeholder{New("Party Name")})
	if got["Party Name"] != "Acme" {
		t.Fatalf("expected Acme, got %v", got)
	}
}

func TestExtract_FirstPlaceholderWinsPerTurn(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Message: "What is the [Date] of the [Company]?"},
		{Role: RoleUser, Message: "x"},
	}
	got := HeuristicExtractor{}.Extract(history, []Placeholder{New("Company"), New("Date")})
	if len(got) != 1 || got["Company"] != "x" {
		t.Fatalf("expected only Company=x, got %v", got)
	}
}

func TestExtract_BracketedTokenBeforeSubstring(t *testing.T) {
	ps := []Placeholder{New("Name"), New("Company Name")}
	history := []Turn{
		{Role: RoleAssistant, Message: "What is the [Name]?"},
		{Role: RoleUser, Message: "Ann"},
		{Role: RoleAssistant, Message: "Thanks! What is the [Company Name]?"},
		{Role: RoleUser, Message: "Acme"},
	}
	got := HeuristicExtractor{}.Extract(history, ps)
	want := ValueMap{"Name": "Ann", "Company Name": "Acme"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if _, ok := SelectNext(ps, got); ok {
		t.Fatal("expected dialogue complete")
	}
	if name, _ := Match("Please provide the [company name].", ps); name != "Company Name" {
		t.Errorf("expected Company Name, got %q", name)
	}
	if name, _ := Match("And the company name?", ps); name != "Name" {
		t.Errorf("expected bare names to match in scan order, got %q", name)
	}
}

func TestExtract_LastWins(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Message: "What is the [Date]?"},
		{Role: RoleUser, Message: "May 1"},
		{Role: RoleAssistant, Message: "Sorry, confirm the [Date]?"},
		{Role: RoleUser, Message: "June 2"},
	}
	got := HeuristicExtractor{}.Extract(history, []Placeholder{New("Date")})
	if got["Date"] != "June 2" {
		t.Fatalf("expected later answer to win, got %q", got["Date"])
	}
}

func TestExtract_StrictRequiresUserAnswer(t *testing.T) {
	history := []Turn{
		{Role: RoleAssistant, Message: "What is the [Date]?"},
		{Role: RoleAssistant, Message: "Take your time."},
	}
	ps := []Placeholder{New("Date")}
	if got := (HeuristicExtractor{}).Extract(history, ps); len(got) != 0 {
		t.Fatalf("expected no values in strict mode, got %v", got)
	}
	if got := (HeuristicExtractor{Permissive: true}).Extract(history, ps); got["Date"] != "Take your time." {
		t.Fatalf("expected permissive pairing, got %v", got)
	}
}

func TestExtract_TrailingQuestionIgnored(t *testing.T) {
	history := []Turn{{Role: RoleAssistant, Message: "What is the [Date]?"}}
	if got := (HeuristicExtractor{}).Extract(history, []Placeholder{New("Date")}); len(got) != 0 {
		t.Fatalf("expected no values, got %v", got)
	}
}

func TestSelectNext(t *testing.T) {
	ps := []Placeholder{New("P1"), New("P2"), New("P3")}
	next, ok := SelectNext(ps, ValueMap{"P2": "x"})
	if !ok || next.Name != "P1" {
		t.Fatalf("expected P1, got %q (ok=%v)", next.Name, ok)
	}
	next, ok = SelectNext(ps, ValueMap{"P1": "a", "P2": "b"})
	if !ok || next.Name != "P3" {
		t.Fatalf("expected P3, got %q (ok=%v)", next.Name, ok)
	}
	if _, ok := SelectNext(ps, ValueMap{"P1": "a", "P2": "b", "P3": ""}); ok {
		t.Fatal("expected no next placeholder when all have values")
	}
}

func TestFilled(t *testing.T) {
	ps := []Placeholder{New("A"), New("B")}
	if n := Filled(ps, ValueMap{"A": "1", "Z": "2"}); n != 1 {
		t.Fatalf("expected 1 filled, got %d", n)
	}
}

package fill

import (
	"sort"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/placeholder"
)

// Outcome is the result of replacing one token in one paragraph.
type Outcome int

const (
	// Absent means the token did not occur in the paragraph.
	Absent Outcome = iota
	// Resolved means every occurrence was replaced.
	Resolved
	// Exhausted means the pass budget ran out with the token still present.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Exhausted:
		return "exhausted"
	default:
		return "absent"
	}
}

// ReplaceInParagraph replaces every occurrence of token in p with value and
// returns the outcome and the number of replacements made.
//
// An occurrence held entirely by one run is replaced inside that run and no
// other run changes. An occurrence that crosses run boundaries rebuilds the
// paragraph: the text before it goes into the first run, the value into the
// next, and the rest of the text into the one after. The value then carries
// that run's formatting. Remaining runs are emptied, and if the paragraph
// has too few runs the leftover text is appended to the last one, so no
// text is ever lost.
func ReplaceInParagraph(p *doctree.Paragraph, token, value string) (Outcome, int) {
	if token == "" || len(p.Runs) == 0 {
		return Absent, 0
	}
	text := p.Text()
	budget := strings.Count(text, token)
	if budget == 0 {
		return Absent, 0
	}

	// from skips past inserted values so a value containing the token is
	// not replaced again.
	from, n := 0, 0
	for pass := 0; pass <= budget; pass++ {
		idx := strings.Index(text[from:], token)
		if idx < 0 {
			return Resolved, n
		}
		if pass == budget {
			break
		}
		start := from + idx
		end := start + len(token)
		if !replaceInRun(p, start, end, value) {
			rebuild(p, text, start, end, value)
		}
		n++
		from = start + len(value)
		text = p.Text()
	}
	return Exhausted, n
}

// replaceInRun handles the case where [start, end) lies inside one run.
func replaceInRun(p *doctree.Paragraph, start, end int, value string) bool {
	off := 0
	for _, r := range p.Runs {
		runEnd := off + len(r.Text)
		if start >= off && end <= runEnd {
			r.Text = r.Text[:start-off] + value + r.Text[end-off:]
			return true
		}
		off = runEnd
		if off > start {
			return false
		}
	}
	return false
}

func rebuild(p *doctree.Paragraph, text string, start, end int, value string) {
	var pieces []string
	if start > 0 {
		pieces = append(pieces, text[:start])
	}
	pieces = append(pieces, value)
	if end < len(text) {
		pieces = append(pieces, text[end:])
	}

	for i, r := range p.Runs {
		switch {
		case i < len(pieces) && i == len(p.Runs)-1:
			r.Text = strings.Join(pieces[i:], "")
		case i < len(pieces):
			r.Text = pieces[i]
		default:
			r.Text = ""
		}
	}
}

// Options selects optional fill behaviour.
type Options struct {
	// BlankAliases also fills literal underscore blanks for names produced
	// by blank renaming ("X in $"): "$[_____________]" becomes "$" + value
	// and "[_____________]" becomes value.
	BlankAliases bool
}

// Blank is the literal underscore placeholder aliased by BlankAliases.
const Blank = "[_____________]"

// Report summarises a Fill. Both fields use placeholder names, e.g.
// "Company Name" rather than "[Company Name]"; blank alias replacements
// count under the name that supplied their value.
type Report struct {
	Replaced  map[string]int `json:"replaced"`            // name -> replacements
	Exhausted []string       `json:"exhausted,omitempty"` // names that gave up in some paragraph
}

// Total is the number of replacements across all names.
func (r Report) Total() int {
	n := 0
	for _, c := range r.Replaced {
		n += c
	}
	return n
}

type pair struct {
	name  string
	token string
	value string
}

// Fill writes values into every paragraph of doc: body, table cells
// (nested tables included), headers and footers. doc is modified in place,
// so callers pass a freshly parsed working copy.
func Fill(doc *doctree.Document, values placeholder.ValueMap, opts Options) Report {
	rep := Report{Replaced: make(map[string]int)}
	pairs := replacements(values, opts)
	if len(pairs) == 0 {
		return rep
	}
	exhausted := make(map[string]bool)
	for _, para := range doc.AllParagraphs() {
		for _, pr := range pairs {
			outcome, n := ReplaceInParagraph(para, pr.token, pr.value)
			if n > 0 {
				rep.Replaced[pr.name] += n
			}
			if outcome == Exhausted && !exhausted[pr.name] {
				exhausted[pr.name] = true
				rep.Exhausted = append(rep.Exhausted, pr.name)
			}
		}
	}
	return rep
}

// replacements orders tokens by name; tokens are disjoint literals so the
// order only matters for the blank aliases, which go last. The blank has a
// single spelling, so when several "X in $" names are filled the last one
// in name order supplies its value.
func replacements(values placeholder.ValueMap, opts Options) []pair {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]pair, 0, len(names)+2)
	blankName := ""
	for _, name := range names {
		out = append(out, pair{name: name, token: placeholder.Token(name), value: values[name]})
		if opts.BlankAliases && strings.HasSuffix(name, placeholder.BlankSuffix) {
			blankName = name
		}
	}
	if blankName != "" {
		v := values[blankName]
		out = append(out,
			pair{name: blankName, token: "$" + Blank, value: "$" + v},
			pair{name: blankName, token: Blank, value: v},
		)
	}
	return out
}

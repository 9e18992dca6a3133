package placeholder

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
)

// Placeholder is a named blank in a template, written [Name] in the text.
type Placeholder struct {
	Name     string `json:"name"`
	Question string `json:"question"`
}

// New returns the placeholder for name with its default question.
func New(name string) Placeholder {
	return Placeholder{Name: name, Question: Question(name)}
}

// Question is the default prompt for a placeholder.
func Question(name string) string {
	return "What should I fill in for " + Token(name) + "?"
}

// Token is the literal text a placeholder occupies in the document.
func Token(name string) string {
	return "[" + name + "]"
}

// ScanOptions selects optional scanner behaviour.
type ScanOptions struct {
	// IncludeHeaders also scans header and footer regions, after the body.
	IncludeHeaders bool
	// RenameBlank names underscore-only placeholders after nearby quoted
	// text, e.g. `[_____] "Purchase Amount"` becomes "Purchase Amount in $".
	RenameBlank bool
}

var (
	tokenPattern = regexp.MustCompile(`\[([^\]]+)\]`)
	quotePattern = regexp.MustCompile(`"([^"]+)"`)
)

// BlankSuffix marks names produced by blank renaming.
const BlankSuffix = " in $"

const (
	blankFallback  = "Amount" + BlankSuffix
	quoteLookahead = 100
)

// Scan returns the placeholders of doc in first-seen order: body
// paragraphs, then table cells row-major, then (optionally) headers and
// footers. Names are unique and case-sensitive.
func Scan(doc *doctree.Document, opts ScanOptions) []Placeholder {
	s := &scanner{opts: opts, seen: make(map[string]bool), out: []Placeholder{}}
	for _, p := range doc.Paragraphs {
		s.scanText(p.Text())
	}
	for _, t := range doc.Tables {
		s.scanTable(t)
	}
	if opts.IncludeHeaders {
		for _, r := range doc.Regions() {
			for _, p := range r.Paragraphs {
				s.scanText(p.Text())
			}
			for _, t := range r.Tables {
				s.scanTable(t)
			}
		}
	}
	return s.out
}

type scanner struct {
	opts ScanOptions
	seen map[string]bool
	out  []Placeholder
}

func (s *scanner) scanTable(t *doctree.Table) {
	doctree.WalkTable(t, func(c *doctree.Cell) {
		s.scanText(c.Text())
	})
}

func (s *scanner) scanText(text string) {
	if !strings.Contains(text, "[") {
		return
	}
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if s.opts.RenameBlank && isBlank(name) {
			name = blankName(text, m[0], m[1])
		}
		if s.seen[name] {
			continue
		}
		s.seen[name] = true
		s.out = append(s.out, New(name))
	}
}

// isBlank reports whether a bracket interior is only underscores and
// whitespace.
func isBlank(name string) bool {
	return strings.TrimSpace(strings.ReplaceAll(name, "_", "")) == ""
}

// blankName looks for quoted text in the 100 bytes after the token, then
// for the closest quoted text before it.
func blankName(text string, start, end int) string {
	after := text[end:]
	if len(after) > quoteLookahead {
		after = after[:quoteLookahead]
	}
	if m := quotePattern.FindStringSubmatch(after); m != nil {
		return m[1] + BlankSuffix
	}
	if all := quotePattern.FindAllStringSubmatch(text[:start], -1); len(all) > 0 {
		return all[len(all)-1][1] + BlankSuffix
	}
	return blankFallback
}

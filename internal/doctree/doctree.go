package doctree

import "strings"

// Document is the editable view of a DOCX package: the body plus every
// header and footer part. Pointers are shared with the codec that produced
// it, so edits to Run.Text are written back on serialisation.
type Document struct {
	Paragraphs []*Paragraph // Body paragraphs in document order
	Tables     []*Table     // Body tables in document order
	Headers    []*Region
	Footers    []*Region
}

// Paragraph is an ordered sequence of runs.
type Paragraph struct {
	Style string // Paragraph style id, e.g. "Heading1" (empty when unset)
	Runs  []*Run
}

// Run is a contiguous span of text sharing one character format.
type Run struct {
	Text  string
	Style Style
}

// Style is the character formatting carried by a run. Only the fields the
// previews care about are surfaced; everything else stays in the package.
type Style struct {
	Ref       string // Character style id
	Bold      bool
	Italic    bool
	Underline bool
}

// Table is a grid of cells, row-major.
type Table struct {
	Rows []*Row
}

// Row is one table row.
type Row struct {
	Cells []*Cell
}

// Cell holds its own paragraphs and any nested tables.
type Cell struct {
	Paragraphs []*Paragraph
	Tables     []*Table
}

// RegionKind distinguishes header parts from footer parts.
type RegionKind int

const (
	RegionHeader RegionKind = iota
	RegionFooter
)

func (k RegionKind) String() string {
	if k == RegionFooter {
		return "footer"
	}
	return "header"
}

// Region is a header or footer part, e.g. word/header1.xml.
type Region struct {
	Part       string
	Kind       RegionKind
	Paragraphs []*Paragraph
	Tables     []*Table
}

// Text returns the concatenated text of all runs.
func (p *Paragraph) Text() string {
	if len(p.Runs) == 1 {
		return p.Runs[0].Text
	}
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Text returns the cell's paragraph texts joined with newlines.
func (c *Cell) Text() string {
	parts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// WalkTable calls fn for every cell in t, row-major, descending into
// nested tables after each cell.
func WalkTable(t *Table, fn func(*Cell)) {
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			fn(cell)
			for _, nested := range cell.Tables {
				WalkTable(nested, fn)
			}
		}
	}
}

// TableParagraphs returns every paragraph inside t, including nested tables.
func TableParagraphs(t *Table) []*Paragraph {
	var out []*Paragraph
	WalkTable(t, func(c *Cell) {
		out = append(out, c.Paragraphs...)
	})
	return out
}

// Regions returns headers followed by footers.
func (d *Document) Regions() []*Region {
	out := make([]*Region, 0, len(d.Headers)+len(d.Footers))
	out = append(out, d.Headers...)
	return append(out, d.Footers...)
}

// AllParagraphs returns every paragraph in the document: body paragraphs,
// table paragraphs, then header and footer paragraphs.
func (d *Document) AllParagraphs() []*Paragraph {
	var out []*Paragraph
	out = append(out, d.Paragraphs...)
	for _, t := range d.Tables {
		out = append(out, TableParagraphs(t)...)
	}
	for _, r := range d.Regions() {
		out = append(out, r.Paragraphs...)
		for _, t := range r.Tables {
			out = append(out, TableParagraphs(t)...)
		}
	}
	return out
}

package parser

import (
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/fumiama/go-docx"
)

// bodyReader converts the go-docx body into the model, collecting runs in
// document order.
type bodyReader struct {
	runs []*doctree.Run
}

// loadBody builds the body model from go-docx and binds each run to the
// matching run scanned from word/document.xml, whose spans are what Bytes
// rewrites. When the two readings disagree, for instance a hyperlink with
// several runs that go-docx folds into one, the scanned model is used.
func (f *File) loadBody(doc *docx.Docx, body *part) {
	var br bodyReader
	var paras []*doctree.Paragraph
	var tables []*doctree.Table
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			paras = append(paras, br.paragraph(it))
		case *docx.Table:
			tables = append(tables, br.table(it))
		}
	}

	if !aligned(br.runs, body.runs) {
		f.Document.Paragraphs = body.region.Paragraphs
		f.Document.Tables = body.region.Tables
		return
	}
	for i, r := range br.runs {
		body.runs[i].model = r
	}
	f.Document.Paragraphs = paras
	f.Document.Tables = tables
}

func aligned(model []*doctree.Run, scanned []*partRun) bool {
	if len(model) != len(scanned) {
		return false
	}
	for i, r := range model {
		if r.Text != scanned[i].orig {
			return false
		}
	}
	return true
}

func (br *bodyReader) paragraph(para *docx.Paragraph) *doctree.Paragraph {
	p := &doctree.Paragraph{Style: docxParagraphStyle(para)}
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			p.Runs = append(p.Runs, br.run(c))
		case *docx.Hyperlink:
			p.Runs = append(p.Runs, br.run(&c.Run))
		}
	}
	return p
}

func (br *bodyReader) table(tbl *docx.Table) *doctree.Table {
	t := &doctree.Table{}
	for _, tr := range tbl.TableRows {
		row := &doctree.Row{}
		for _, tc := range tr.TableCells {
			cell := &doctree.Cell{}
			for _, para := range tc.Paragraphs {
				cell.Paragraphs = append(cell.Paragraphs, br.paragraph(para))
			}
			for _, nested := range tc.Tables {
				cell.Tables = append(cell.Tables, br.table(nested))
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (br *bodyReader) run(src *docx.Run) *doctree.Run {
	r := &doctree.Run{Text: docxRunText(src), Style: docxRunStyle(src)}
	br.runs = append(br.runs, r)
	return r
}

func docxRunText(run *docx.Run) string {
	var buf strings.Builder
	for _, rc := range run.Children {
		if t, ok := rc.(*docx.Text); ok {
			buf.WriteString(t.Text)
		}
	}
	return buf.String()
}

func docxParagraphStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxRunStyle(run *docx.Run) doctree.Style {
	rp := run.RunProperties
	if rp == nil {
		return doctree.Style{}
	}
	var s doctree.Style
	if rp.RunStyle != nil {
		s.Ref = rp.RunStyle.Val
	}
	s.Bold = rp.Bold != nil
	s.Italic = rp.Italic != nil
	s.Underline = rp.Underline != nil && rp.Underline.Val != "" && rp.Underline.Val != "none"
	return s
}

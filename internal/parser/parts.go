package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dgallion1/docfill/internal/doctree"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// part is one XML part of the package: the main document, a header or a
// footer. Parts are read as a token stream and edited by splicing new w:t
// elements into the original bytes, so markup the model does not cover
// (section properties, header references, unusual run properties) is
// written back exactly as it was read.
type part struct {
	name   string
	raw    []byte
	region *doctree.Region
	runs   []*partRun

	// strict limits the scan to the elements go-docx reads, so the body's
	// runs line up one to one with the go-docx run list.
	strict bool
}

// partRun is one w:r of a part together with the byte spans of its w:t
// elements.
type partRun struct {
	model   *doctree.Run
	orig    string
	spans   []textSpan
	closeAt int64 // offset of </w:r>, where text is inserted into a run that had none

	// selfClosing marks an empty <w:r/>; whole covers the element.
	selfClosing bool
	whole       textSpan
}

// textSpan locates a whole w:t element: [start, end) covers the opening
// tag through the closing tag (or the self-closing tag).
type textSpan struct {
	start  int64
	end    int64
	prefix string
}

func loadPart(zf *zip.File, kind doctree.RegionKind) (*part, error) {
	return readPart(zf, &doctree.Region{Part: zf.Name, Kind: kind}, false)
}

// loadBodyPart reads word/document.xml. Its region holds the body
// paragraphs and tables as the scanner sees them.
func loadBodyPart(zf *zip.File) (*part, error) {
	return readPart(zf, &doctree.Region{Part: zf.Name}, true)
}

func readPart(zf *zip.File, region *doctree.Region, strict bool) (*part, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	p := &part{
		name:   zf.Name,
		raw:    raw,
		region: region,
		strict: strict,
	}
	if err := p.scan(); err != nil {
		return nil, err
	}
	return p, nil
}

type frameKind int

const (
	frameTable frameKind = iota
	frameRow
	frameCell
	frameParagraph
	frameRun
)

type frame struct {
	kind  frameKind
	table *doctree.Table
	row   *doctree.Row
	cell  *doctree.Cell
	para  *doctree.Paragraph
	run   *partRun
}

// scan walks the token stream, building the region model and recording
// where each run's text lives.
func (p *part) scan() error {
	d := xml.NewDecoder(bytes.NewReader(p.raw))
	var stack []frame
	var names []string // local names of open elements, "" outside the w: namespace

	nearest := func(k frameKind) *frame {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == k {
				return &stack[i]
			}
		}
		return nil
	}

	for {
		tokStart := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var parent string
			if len(names) > 0 {
				parent = names[len(names)-1]
			}
			if p.strict && !docxReads(parent, t) {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			if t.Name.Space != wordNS {
				names = append(names, "")
				continue
			}
			names = append(names, t.Name.Local)
			switch t.Name.Local {
			case "tbl":
				tbl := &doctree.Table{}
				if c := nearest(frameCell); c != nil {
					c.cell.Tables = append(c.cell.Tables, tbl)
				} else {
					p.region.Tables = append(p.region.Tables, tbl)
				}
				stack = append(stack, frame{kind: frameTable, table: tbl})
			case "tr":
				row := &doctree.Row{}
				if tf := nearest(frameTable); tf != nil {
					tf.table.Rows = append(tf.table.Rows, row)
				}
				stack = append(stack, frame{kind: frameRow, row: row})
			case "tc":
				cell := &doctree.Cell{}
				if rf := nearest(frameRow); rf != nil {
					rf.row.Cells = append(rf.row.Cells, cell)
				}
				stack = append(stack, frame{kind: frameCell, cell: cell})
			case "p":
				para := &doctree.Paragraph{}
				if c := nearest(frameCell); c != nil {
					c.cell.Paragraphs = append(c.cell.Paragraphs, para)
				} else {
					p.region.Paragraphs = append(p.region.Paragraphs, para)
				}
				stack = append(stack, frame{kind: frameParagraph, para: para})
			case "r":
				run := &partRun{model: &doctree.Run{}}
				if pf := nearest(frameParagraph); pf != nil {
					pf.para.Runs = append(pf.para.Runs, run.model)
				}
				if end := d.InputOffset(); bytes.HasSuffix(p.raw[:end], []byte("/>")) {
					run.selfClosing = true
					run.whole = textSpan{start: tokStart, end: end, prefix: elementPrefix(p.raw[tokStart:])}
				}
				p.runs = append(p.runs, run)
				stack = append(stack, frame{kind: frameRun, run: run})
			case "t":
				if len(stack) == 0 || stack[len(stack)-1].kind != frameRun {
					continue
				}
				run := stack[len(stack)-1].run
				text, err := readText(d)
				if err != nil {
					return err
				}
				names = names[:len(names)-1]
				run.model.Text += text
				run.spans = append(run.spans, textSpan{
					start:  tokStart,
					end:    d.InputOffset(),
					prefix: elementPrefix(p.raw[tokStart:]),
				})
			case "pStyle":
				if pf := nearest(frameParagraph); pf != nil {
					pf.para.Style = attrVal(t)
				}
			case "rStyle", "b", "i", "u":
				if len(stack) == 0 || stack[len(stack)-1].kind != frameRun {
					continue
				}
				applyRunProperty(&stack[len(stack)-1].run.model.Style, t)
			}
		case xml.EndElement:
			if len(names) > 0 {
				names = names[:len(names)-1]
			}
			if t.Name.Space != wordNS || len(stack) == 0 {
				continue
			}
			want, ok := frameKinds[t.Name.Local]
			if !ok || stack[len(stack)-1].kind != want {
				continue
			}
			if want == frameRun {
				stack[len(stack)-1].run.closeAt = tokStart
			}
			stack = stack[:len(stack)-1]
		}
	}
	for _, r := range p.runs {
		r.orig = r.model.Text
	}
	return nil
}

var frameKinds = map[string]frameKind{
	"tbl": frameTable,
	"tr":  frameRow,
	"tc":  frameCell,
	"p":   frameParagraph,
	"r":   frameRun,
}

// docxChildren lists, per parent element, the children a strict scan
// enters: the ones go-docx reads structure or text from. Other children of
// these parents are skipped whole.
var docxChildren = map[string]map[string]bool{
	"document":  {"body": true},
	"body":      {"p": true, "tbl": true},
	"tbl":       {"tr": true, "tblPr": true, "tblGrid": true},
	"tr":        {"tc": true, "trPr": true},
	"tc":        {"p": true, "tbl": true, "tcPr": true},
	"p":         {"r": true, "hyperlink": true, "pPr": true},
	"hyperlink": {"r": true},
	"r":         {"rPr": true, "t": true, "tab": true, "br": true, "instrText": true},
}

func docxReads(parent string, t xml.StartElement) bool {
	allowed, ok := docxChildren[parent]
	if !ok {
		return true
	}
	return t.Name.Space == wordNS && allowed[t.Name.Local]
}

// readText consumes tokens up to and including the w:t end element.
func readText(d *xml.Decoder) (string, error) {
	var buf bytes.Buffer
	for {
		tok, err := d.Token()
		if err != nil {
			return "", fmt.Errorf("read w:t: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			return buf.String(), nil
		}
	}
}

func applyRunProperty(s *doctree.Style, t xml.StartElement) {
	val := attrVal(t)
	switch t.Name.Local {
	case "rStyle":
		s.Ref = val
	case "b":
		s.Bold = val != "0" && val != "false"
	case "i":
		s.Italic = val != "0" && val != "false"
	case "u":
		s.Underline = val != "" && val != "none"
	}
}

func attrVal(t xml.StartElement) string {
	for _, a := range t.Attr {
		if a.Name.Local == "val" {
			return a.Value
		}
	}
	return ""
}

// elementPrefix returns the namespace prefix of the tag at the start of
// b, e.g. "w" for "<w:t>" or "</w:r>".
func elementPrefix(b []byte) string {
	b = bytes.TrimPrefix(bytes.TrimPrefix(b, []byte("<")), []byte("/"))
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case ':':
			return string(b[:i])
		case ' ', '>', '/':
			return ""
		}
	}
	return "w"
}

func (p *part) changed() bool {
	for _, r := range p.runs {
		if r.model.Text != r.orig {
			return true
		}
	}
	return false
}

// render splices edited run text into a copy of the original XML. The
// first w:t of a run takes the whole value and later ones are emptied.
func (p *part) render() []byte {
	type edit struct {
		span    textSpan
		text    string
		wrapRun bool
	}
	var edits []edit
	for _, r := range p.runs {
		if r.model.Text == r.orig {
			continue
		}
		if len(r.spans) == 0 {
			if r.selfClosing {
				edits = append(edits, edit{span: r.whole, text: r.model.Text, wrapRun: true})
				continue
			}
			if r.closeAt > 0 {
				at := textSpan{start: r.closeAt, end: r.closeAt, prefix: elementPrefix(p.raw[r.closeAt:])}
				edits = append(edits, edit{span: at, text: r.model.Text})
			}
			continue
		}
		for i, sp := range r.spans {
			text := ""
			if i == 0 {
				text = r.model.Text
			}
			edits = append(edits, edit{span: sp, text: text})
		}
	}

	var out bytes.Buffer
	out.Grow(len(p.raw) + 64*len(edits))
	sort.Slice(edits, func(i, j int) bool { return edits[i].span.start < edits[j].span.start })
	var pos int64
	for _, e := range edits {
		out.Write(p.raw[pos:e.span.start])
		if e.wrapRun {
			writeRunElement(&out, e.span.prefix, e.text)
		} else {
			writeTextElement(&out, e.span.prefix, e.text)
		}
		pos = e.span.end
	}
	out.Write(p.raw[pos:])
	return out.Bytes()
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func writeRunElement(w *bytes.Buffer, prefix, text string) {
	name := qualified(prefix, "r")
	w.WriteString("<" + name + ">")
	writeTextElement(w, prefix, text)
	w.WriteString("</" + name + ">")
}

func writeTextElement(w *bytes.Buffer, prefix, text string) {
	name := qualified(prefix, "t")
	w.WriteString("<" + name + ` xml:space="preserve">`)
	_ = xml.EscapeText(w, []byte(text))
	w.WriteString("</" + name + ">")
}

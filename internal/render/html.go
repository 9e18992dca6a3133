package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
	"github.com/dgallion1/docfill/internal/placeholder"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown converts the body to Markdown: heading styles become headings,
// bold and italic runs keep their emphasis and tables become GFM tables.
func Markdown(doc *doctree.Document) string {
	var sb strings.Builder
	for _, p := range doc.Paragraphs {
		line := paragraphMarkdown(p)
		if strings.TrimSpace(line) == "" {
			continue
		}
		if level := headingLevel(p.Style); level > 0 {
			sb.WriteString(strings.Repeat("#", level) + " ")
		}
		sb.WriteString(line)
		sb.WriteString("\n\n")
	}
	for _, t := range doc.Tables {
		writeTable(&sb, t)
		sb.WriteString("\n")
	}
	return sb.String()
}

// HTML renders the body as an HTML fragment. Tokens for placeholders in
// pending are wrapped in <mark class="placeholder">.
func HTML(doc *doctree.Document, pending []placeholder.Placeholder) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	if len(pending) == 0 {
		return buf.String(), nil
	}
	tokens := make([]string, len(pending))
	for i, p := range pending {
		tokens[i] = placeholder.Token(p.Name)
	}
	return highlight(buf.String(), tokens)
}

func highlight(fragment string, tokens []string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parse preview html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	markText(body, tokens)

	var out bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&out, c); err != nil {
			return "", fmt.Errorf("render preview html: %w", err)
		}
	}
	return out.String(), nil
}

func markText(n *html.Node, tokens []string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode:
			splitText(c, tokens)
		case c.Type == html.ElementNode && c.DataAtom != atom.Mark:
			markText(c, tokens)
		}
		c = next
	}
}

// splitText replaces a text node with text and <mark> nodes, one mark per
// token occurrence.
func splitText(n *html.Node, tokens []string) {
	text := n.Data
	parent := n.Parent
	changed := false
	for {
		idx, tok := firstToken(text, tokens)
		if idx < 0 {
			break
		}
		changed = true
		if idx > 0 {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[:idx]}, n)
		}
		mark := &html.Node{
			Type:     html.ElementNode,
			Data:     "mark",
			DataAtom: atom.Mark,
			Attr:     []html.Attribute{{Key: "class", Val: "placeholder"}},
		}
		mark.AppendChild(&html.Node{Type: html.TextNode, Data: tok})
		parent.InsertBefore(mark, n)
		text = text[idx+len(tok):]
	}
	if !changed {
		return
	}
	if text != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, n)
	}
	parent.RemoveChild(n)
}

func firstToken(text string, tokens []string) (int, string) {
	best, bestTok := -1, ""
	for _, t := range tokens {
		i := strings.Index(text, t)
		if i >= 0 && (best < 0 || i < best || (i == best && len(t) > len(bestTok))) {
			best, bestTok = i, t
		}
	}
	return best, bestTok
}

func paragraphMarkdown(p *doctree.Paragraph) string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(runMarkdown(r))
	}
	return sb.String()
}

// runMarkdown escapes the run and applies emphasis around its non-space
// core so "**text** " stays valid Markdown.
func runMarkdown(r *doctree.Run) string {
	core := strings.TrimSpace(r.Text)
	if core == "" {
		return escapeMarkdown(r.Text)
	}
	lead := r.Text[:strings.Index(r.Text, core)]
	trail := r.Text[len(lead)+len(core):]
	out := escapeMarkdown(core)
	if r.Style.Italic {
		out = "*" + out + "*"
	}
	if r.Style.Bold {
		out = "**" + out + "**"
	}
	return lead + out + trail
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `>`, `\>`, `#`, `\#`, `|`, `\|`, `~`, `\~`, "\n", " ",
)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

func writeTable(sb *strings.Builder, t *doctree.Table) {
	cols := 0
	for _, row := range t.Rows {
		cols = max(cols, len(row.Cells))
	}
	if cols == 0 {
		return
	}
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}
	for i, row := range t.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			parts := make([]string, 0, len(c.Paragraphs))
			for _, p := range c.Paragraphs {
				if s := paragraphMarkdown(p); strings.TrimSpace(s) != "" {
					parts = append(parts, s)
				}
			}
			cells[j] = strings.Join(parts, " ")
		}
		writeRow(cells)
		if i == 0 {
			sep := make([]string, cols)
			for k := range sep {
				sep[k] = "---"
			}
			writeRow(sep)
		}
	}
}

func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
	if err != nil || n < 1 || n > 6 {
		return 0
	}
	return n
}

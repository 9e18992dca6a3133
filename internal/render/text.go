package render

import (
	"strings"

	"github.com/dgallion1/docfill/internal/doctree"
)

// PlainText renders the body for a quick preview: non-blank paragraphs,
// then each top-level table between [TABLE] and [END TABLE] markers with
// cells separated by " | ". Blocks are separated by blank lines.
func PlainText(doc *doctree.Document) string {
	var blocks []string
	for _, p := range doc.Paragraphs {
		text := p.Text()
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	}
	for _, t := range doc.Tables {
		blocks = append(blocks, "\n[TABLE]")
		for _, row := range t.Rows {
			cells := make([]string, len(row.Cells))
			for i, c := range row.Cells {
				cells[i] = c.Text()
			}
			line := strings.Join(cells, " | ")
			if strings.TrimSpace(line) != "" {
				blocks = append(blocks, line)
			}
		}
		blocks = append(blocks, "[END TABLE]\n")
	}
	return strings.Join(blocks, "\n\n")
}

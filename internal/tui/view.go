package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	width := a.width
	if width <= 0 {
		width = 80
	}
	boxWidth := min(72, width-4)
	leftPad := max(2, (width-boxWidth)/2)
	indent := strings.Repeat(" ", leftPad)

	headerHeight := 3 // title + file + blank line
	footerHeight := 4 // input box + status bar
	available := max(5, a.height-headerHeight-footerHeight)

	var header strings.Builder
	header.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, styleTitle.Render("docfill")))
	header.WriteString("\n")
	header.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, styleSubtitle.Render(a.inPath)))
	header.WriteString("\n\n")

	lines := a.transcript(boxWidth-4, indent)

	// Scroll from the bottom.
	maxScroll := max(0, len(lines)-available)
	if a.scroll > maxScroll {
		a.scroll = maxScroll
	}
	end := len(lines) - a.scroll
	start := max(0, end-available)
	visible := lines[start:end]

	var body strings.Builder
	body.WriteString(strings.Join(visible, "\n"))
	if pad := available - len(visible); pad > 0 {
		body.WriteString(strings.Repeat("\n", pad))
	}

	var footer strings.Builder
	inputBox := styleBox.Width(boxWidth).Render(a.input.View())
	footer.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, inputBox))
	footer.WriteString("\n")
	footer.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, styleStatusBar.Render(a.status())))

	return header.String() + body.String() + "\n" + footer.String()
}

func (a *App) transcript(wrap int, indent string) []string {
	var out []string
	for _, e := range a.entries {
		style, prefix := styleAssistant, "  "
		switch e.kind {
		case entryUser:
			style, prefix = styleUser, "> "
		case entryNotice:
			style = styleNotice
		case entryError:
			style, prefix = styleError, "! "
		}
		for i, line := range strings.Split(wrapText(e.text, wrap), "\n") {
			p := prefix
			if i > 0 {
				p = "  "
			}
			out = append(out, indent+style.Render(p+line))
		}
		out = append(out, "")
	}
	return out
}

func (a *App) status() string {
	var parts []string
	switch {
	case a.busy && a.sessionID == "":
		parts = append(parts, "Reading template...")
	case a.busy:
		parts = append(parts, "Working...")
	case a.saved:
		parts = append(parts, "Saved to "+a.outPath)
	}
	if a.total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d filled", a.filled, a.total))
	}
	if a.scroll > 0 {
		parts = append(parts, fmt.Sprintf("[scroll: %d]", a.scroll))
	}
	parts = append(parts, "[pgup/pgdn] Scroll  [Esc] Quit")
	return strings.Join(parts, "  ")
}

// wrapText wraps each line of text to maxWidth, preserving words.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 60
	}
	var result strings.Builder
	for n, para := range strings.Split(text, "\n") {
		if n > 0 {
			result.WriteString("\n")
		}
		lineLen := 0
		for i, word := range strings.Fields(para) {
			if i > 0 {
				if lineLen+1+len(word) > maxWidth {
					result.WriteString("\n")
					lineLen = 0
				} else {
					result.WriteString(" ")
					lineLen++
				}
			}
			result.WriteString(word)
			lineLen += len(word)
		}
	}
	return result.String()
}

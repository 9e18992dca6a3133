package assistant

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docfill/internal/placeholder"
)

const systemPreamble = `You are a concise legal document assistant helping fill placeholder values in a DOCX template.
Ask only one clear question at a time. Always mention the placeholder in square brackets exactly as written, e.g. [Company Name].
If all placeholders are filled, simply confirm the document is ready to download.`

// BuildSystemPrompt lists every placeholder, the values collected so far and
// the instruction for this turn.
func BuildSystemPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\n---\n")

	names := make([]string, len(req.Placeholders))
	for i, p := range req.Placeholders {
		names[i] = placeholder.Token(p.Name)
	}
	sb.WriteString("Placeholders to complete: ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n")

	var filled []string
	for _, p := range req.Placeholders {
		if v, ok := req.Values[p.Name]; ok {
			filled = append(filled, fmt.Sprintf("%s=`%s`", placeholder.Token(p.Name), v))
		}
	}
	sb.WriteString("Values already provided: ")
	if len(filled) == 0 {
		sb.WriteString("none yet")
	} else {
		sb.WriteString(strings.Join(filled, "; "))
	}
	sb.WriteString("\n---\n")

	if req.Next != nil {
		fmt.Fprintf(&sb, "Ask for the value of %s. Prefer this wording: %s",
			placeholder.Token(req.Next.Name), req.Next.Question)
	} else {
		sb.WriteString("Everything is filled. Confirm completion briefly without adding new placeholders.")
	}
	return sb.String()
}

// buildMessages converts the dialogue into alternating user/assistant
// messages, newest turns kept first when the history exceeds budget tokens.
func buildMessages(history []placeholder.Turn, budget int) []anthropicMessage {
	var msgs []anthropicMessage
	for _, t := range history {
		role := string(t.Role)
		if t.Role != placeholder.RoleUser && t.Role != placeholder.RoleAssistant {
			continue
		}
		if strings.TrimSpace(t.Message) == "" {
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + t.Message
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: role, Content: t.Message})
	}

	if budget > 0 {
		used, keep := 0, len(msgs)
		for i := len(msgs) - 1; i >= 0; i-- {
			used += EstimateTokens(msgs[i].Content)
			if used > budget && i < len(msgs)-1 {
				break
			}
			keep = i
		}
		msgs = msgs[keep:]
	}

	if len(msgs) == 0 || msgs[0].Role != string(placeholder.RoleUser) {
		msgs = append([]anthropicMessage{{Role: "user", Content: "I uploaded a template. Help me fill it in."}}, msgs...)
	}
	if msgs[len(msgs)-1].Role != string(placeholder.RoleUser) {
		msgs = append(msgs, anthropicMessage{Role: "user", Content: "Continue."})
	}
	return msgs
}

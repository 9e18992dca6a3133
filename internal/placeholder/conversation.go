package placeholder

import "strings"

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message of the fill dialogue.
type Turn struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// ValueMap maps placeholder names to the values gathered for them.
type ValueMap map[string]string

// Extractor recovers placeholder values from a conversation.
type Extractor interface {
	Extract(history []Turn, placeholders []Placeholder) ValueMap
}

// HeuristicExtractor pairs each assistant question with the turn that
// follows it. A question is about a placeholder when it contains its
// [Name] token, compared without case. Failing that, a question is about
// the first placeholder (in scan order) whose lower-cased name appears
// anywhere in it. Later questions about the same name overwrite earlier
// answers.
type HeuristicExtractor struct {
	// Permissive accepts any following turn as the answer. By default the
	// answer must come from the user.
	Permissive bool
}

type lookupEntry struct {
	lower string
	name  string
}

// Extract implements Extractor.
func (e HeuristicExtractor) Extract(history []Turn, placeholders []Placeholder) ValueMap {
	values := ValueMap{}
	lookup := buildLookup(placeholders)
	if len(lookup) == 0 {
		return values
	}

	for i, turn := range history {
		if turn.Role != RoleAssistant || i+1 >= len(history) {
			continue
		}
		answer := history[i+1]
		if !e.Permissive && answer.Role != RoleUser {
			continue
		}
		if name, ok := match(turn.Message, lookup); ok {
			values[name] = answer.Message
		}
	}
	return values
}

// Match returns the name of the placeholder an assistant message would be
// taken to ask about, using the same rules as HeuristicExtractor.
func Match(message string, placeholders []Placeholder) (string, bool) {
	return match(message, buildLookup(placeholders))
}

// match checks bracketed tokens before bare names, so "[Company Name]"
// is not taken for a question about "Name".
func match(message string, lookup []lookupEntry) (string, bool) {
	msgLower := strings.ToLower(message)
	for _, l := range lookup {
		if strings.Contains(msgLower, Token(l.lower)) {
			return l.name, true
		}
	}
	for _, l := range lookup {
		if strings.Contains(msgLower, l.lower) {
			return l.name, true
		}
	}
	return "", false
}

// buildLookup keys placeholders by lower-cased name. Names that collide
// after lower-casing keep the first position and the last canonical name.
func buildLookup(placeholders []Placeholder) []lookupEntry {
	index := make(map[string]int, len(placeholders))
	out := make([]lookupEntry, 0, len(placeholders))
	for _, p := range placeholders {
		lower := strings.ToLower(p.Name)
		if i, ok := index[lower]; ok {
			out[i].name = p.Name
			continue
		}
		index[lower] = len(out)
		out = append(out, lookupEntry{lower: lower, name: p.Name})
	}
	return out
}

// SelectNext returns the first placeholder with no value. ok is false once
// every placeholder has one, which ends the dialogue.
func SelectNext(placeholders []Placeholder, values ValueMap) (next Placeholder, ok bool) {
	for _, p := range placeholders {
		if _, filled := values[p.Name]; !filled {
			return p, true
		}
	}
	return Placeholder{}, false
}

// Filled counts placeholders that have a value.
func Filled(placeholders []Placeholder, values ValueMap) int {
	n := 0
	for _, p := range placeholders {
		if _, ok := values[p.Name]; ok {
			n++
		}
	}
	return n
}

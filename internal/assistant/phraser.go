package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docfill/internal/placeholder"
)

// CompletionMessage is the reply once every placeholder has a value.
const CompletionMessage = "Great! I have all the information I need. Your document is ready to download."

// Request is everything a phraser may use to word the next reply.
type Request struct {
	History      []placeholder.Turn
	Placeholders []placeholder.Placeholder
	Values       placeholder.ValueMap
	Next         *placeholder.Placeholder // nil when the dialogue is complete
}

// Phraser produces the assistant's next message.
type Phraser interface {
	Phrase(ctx context.Context, req Request) (string, error)
}

// TemplatePhraser words replies from fixed templates.
type TemplatePhraser struct{}

func (TemplatePhraser) Phrase(_ context.Context, req Request) (string, error) {
	if req.Next == nil {
		return CompletionMessage, nil
	}
	for _, t := range req.History {
		if t.Role == placeholder.RoleAssistant {
			return "Thank you! Now, " + req.Next.Question, nil
		}
	}
	return "Let's get started. " + req.Next.Question, nil
}

// ClaudePhraser asks the model to word the reply and falls back to the
// template when the model fails or its reply would not be recognised as a
// question about the next placeholder.
type ClaudePhraser struct {
	client        *ClaudeClient
	stats         *LLMStats
	log           *slog.Logger
	historyBudget int
	fallback      TemplatePhraser
	backoff       func(attempt int) time.Duration
}

func NewClaudePhraser(client *ClaudeClient, stats *LLMStats, historyBudget int, log *slog.Logger) *ClaudePhraser {
	return &ClaudePhraser{
		client:        client,
		stats:         stats,
		log:           log,
		historyBudget: historyBudget,
		backoff:       Backoff,
	}
}

func (p *ClaudePhraser) Phrase(ctx context.Context, req Request) (string, error) {
	text, err := p.complete(ctx, req)
	if err == nil && asksFor(text, req) {
		return text, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.log.Warn("phrasing failed, using template", "error", err)
	} else {
		p.log.Warn("model reply would be misread by the extractor, using template", "reply", truncate(text, 120))
	}
	p.stats.Fallback()
	return p.fallback.Phrase(ctx, req)
}

func (p *ClaudePhraser) complete(ctx context.Context, req Request) (string, error) {
	system := BuildSystemPrompt(req)
	msgs := buildMessages(req.History, p.historyBudget)

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(p.backoff(attempt - 1)):
			}
		}
		start := time.Now()
		text, err := p.client.Complete(ctx, system, msgs)
		p.stats.Record(time.Since(start).Milliseconds(), err != nil)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		p.log.Debug("retrying phrasing", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("phrase reply: %w", lastErr)
}

// asksFor reports whether the value extractor will read text as the
// question for req.Next. A completion reply must not name any placeholder,
// or the user's next message would overwrite that value.
func asksFor(text string, req Request) bool {
	name, ok := placeholder.Match(text, req.Placeholders)
	if req.Next == nil {
		return !ok
	}
	return ok && name == req.Next.Name
}

// Greeting opens the dialogue after an upload.
func Greeting(placeholders []placeholder.Placeholder) string {
	if len(placeholders) == 0 {
		return "I've analyzed your document but couldn't find any placeholders to fill."
	}
	return fmt.Sprintf("I've analyzed your document and found %d placeholders to fill. Let's complete them one by one.\n\n%s",
		len(placeholders), placeholders[0].Question)
}

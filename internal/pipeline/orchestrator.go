package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/assistant"
	"github.com/dgallion1/docfill/internal/config"
	"github.com/dgallion1/docfill/internal/fill"
	"github.com/dgallion1/docfill/internal/parser"
	"github.com/dgallion1/docfill/internal/placeholder"
	"github.com/dgallion1/docfill/internal/render"
)

// Orchestrator runs the fill dialogue over uploaded sessions.
type Orchestrator struct {
	sessions  *SessionStore
	extractor placeholder.Extractor
	phraser   assistant.Phraser
	log       *slog.Logger

	scanOpts       placeholder.ScanOptions
	fillOpts       fill.Options
	maxUploadBytes int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator wires the session store and core operations from cfg.
func NewOrchestrator(cfg config.Config, phraser assistant.Phraser, log *slog.Logger) *Orchestrator {
	if phraser == nil {
		phraser = assistant.TemplatePhraser{}
	}
	return &Orchestrator{
		sessions:  NewSessionStore(cfg.SessionTTL),
		extractor: placeholder.HeuristicExtractor{Permissive: cfg.PermissiveExtraction},
		phraser:   phraser,
		log:       log,
		scanOpts: placeholder.ScanOptions{
			IncludeHeaders: cfg.ScanHeaders,
			RenameBlank:    cfg.RenameBlank,
		},
		fillOpts:       fill.Options{BlankAliases: cfg.RenameBlank},
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Start launches the session cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if n := o.sessions.Cleanup(); n > 0 {
					o.log.Info("expired sessions removed", "count", n, "remaining", o.sessions.Len())
				}
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Upload parses a template, scans it and stores a new session.
func (o *Orchestrator) Upload(filename string, data []byte) (UploadResult, error) {
	if !parser.IsSupportedExtension(filename) {
		return UploadResult{}, ErrUnsupportedFile
	}
	if o.maxUploadBytes > 0 && int64(len(data)) > o.maxUploadBytes {
		return UploadResult{}, &FileTooLargeError{Size: int64(len(data)), Limit: o.maxUploadBytes}
	}

	f, err := parser.Parse(data)
	if err != nil {
		return UploadResult{}, err
	}
	ps := placeholder.Scan(f.Document, o.scanOpts)

	sess := newSession(filename, data, ps)
	o.sessions.Put(sess)
	o.log.Info("document uploaded",
		"session_id", sess.ID,
		"filename", filename,
		"bytes", len(data),
		"placeholders", len(ps),
	)
	return UploadResult{
		SessionSnapshot: sess.Snapshot(),
		Greeting:        assistant.Greeting(ps),
	}, nil
}

// Session returns a snapshot of the named session.
func (o *Orchestrator) Session(id string) (SessionSnapshot, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Delete drops a session.
func (o *Orchestrator) Delete(id string) error {
	if id == "" {
		return &PreconditionError{Err: ErrNoDocument}
	}
	if !o.sessions.Delete(id) {
		return &PreconditionError{SessionID: id, Err: ErrSessionNotFound}
	}
	o.log.Info("session deleted", "session_id", id)
	return nil
}

// Chat derives the values gathered so far and words the next question.
func (o *Orchestrator) Chat(ctx context.Context, id string, history []placeholder.Turn) (ChatResult, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return ChatResult{}, err
	}
	_, ps := sess.state()
	values := o.extractor.Extract(history, ps)

	req := assistant.Request{History: history, Placeholders: ps, Values: values}
	if next, ok := placeholder.SelectNext(ps, values); ok {
		req.Next = &next
	}
	reply, err := o.phraser.Phrase(ctx, req)
	if err != nil {
		return ChatResult{}, fmt.Errorf("phrase reply: %w", err)
	}

	return ChatResult{
		Response:        reply,
		AllFilled:       req.Next == nil,
		FilledCount:     placeholder.Filled(ps, values),
		TotalCount:      len(ps),
		NextPlaceholder: req.Next,
	}, nil
}

// Generate fills a fresh copy of the template with the values gathered
// from history and returns the new package.
func (o *Orchestrator) Generate(id string, history []placeholder.Turn) (Filled, error) {
	w, err := o.fillCopy(id, history)
	if err != nil {
		return Filled{}, err
	}
	data, err := w.file.Bytes()
	if err != nil {
		return Filled{}, fmt.Errorf("serialize document: %w", err)
	}
	o.log.Info("document generated",
		"session_id", id,
		"filled", w.filled,
		"total", len(w.placeholders),
		"replacements", w.report.Total(),
	)
	return Filled{
		Data:        data,
		Report:      w.report,
		FilledCount: w.filled,
		TotalCount:  len(w.placeholders),
	}, nil
}

// Preview renders the filled document as plain text, with the lines that
// changed relative to the unfilled template.
func (o *Orchestrator) Preview(id string, history []placeholder.Turn) (Preview, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return Preview{}, err
	}
	raw, _ := sess.state()
	before, err := parser.Parse(raw)
	if err != nil {
		return Preview{}, fmt.Errorf("parse template: %w", err)
	}

	w, err := o.fillCopy(id, history)
	if err != nil {
		return Preview{}, err
	}
	text := render.PlainText(w.file.Document)
	changes, truncated := render.Changes(render.PlainText(before.Document), text)
	return Preview{
		Text:             text,
		Changes:          changes,
		ChangesTruncated: truncated,
		FilledCount:      w.filled,
		TotalCount:       len(w.placeholders),
	}, nil
}

// PreviewHTML renders the filled document as HTML with unfilled
// placeholders highlighted.
func (o *Orchestrator) PreviewHTML(id string, history []placeholder.Turn) (HTMLPreview, error) {
	w, err := o.fillCopy(id, history)
	if err != nil {
		return HTMLPreview{}, err
	}
	var pending []placeholder.Placeholder
	for _, p := range w.placeholders {
		if _, ok := w.values[p.Name]; !ok {
			pending = append(pending, p)
		}
	}
	html, err := render.HTML(w.file.Document, pending)
	if err != nil {
		return HTMLPreview{}, err
	}
	return HTMLPreview{
		HTML:        html,
		FilledCount: w.filled,
		TotalCount:  len(w.placeholders),
	}, nil
}

type working struct {
	file         *parser.File
	placeholders []placeholder.Placeholder
	values       placeholder.ValueMap
	report       fill.Report
	filled       int
}

// fillCopy parses a private copy of the session's template and fills it.
func (o *Orchestrator) fillCopy(id string, history []placeholder.Turn) (*working, error) {
	sess, err := o.lookup(id)
	if err != nil {
		return nil, err
	}
	raw, ps := sess.state()
	f, err := parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	values := o.extractor.Extract(history, ps)
	rep := fill.Fill(f.Document, values, o.fillOpts)
	if len(rep.Exhausted) > 0 {
		o.log.Warn("placeholders left after fill", "session_id", id, "names", rep.Exhausted)
	}
	return &working{
		file:         f,
		placeholders: ps,
		values:       values,
		report:       rep,
		filled:       placeholder.Filled(ps, values),
	}, nil
}

func (o *Orchestrator) lookup(id string) (*Session, error) {
	if id == "" {
		return nil, &PreconditionError{Err: ErrNoDocument}
	}
	sess := o.sessions.Get(id)
	if sess == nil {
		return nil, &PreconditionError{SessionID: id, Err: ErrSessionNotFound}
	}
	return sess, nil
}

// UploadResult is the response to a successful upload.
type UploadResult struct {
	SessionSnapshot
	Greeting string `json:"greeting"`
}

// ChatResult is the assistant's reply for one turn.
type ChatResult struct {
	Response        string                   `json:"response"`
	AllFilled       bool                     `json:"all_filled"`
	FilledCount     int                      `json:"filled_count"`
	TotalCount      int                      `json:"total_count"`
	NextPlaceholder *placeholder.Placeholder `json:"next_placeholder,omitempty"`
}

// Filled is a generated document.
type Filled struct {
	Data        []byte
	Report      fill.Report
	FilledCount int
	TotalCount  int
}

// Preview is the plain-text preview of a filled document.
type Preview struct {
	Text             string        `json:"preview"`
	Changes          []render.Line `json:"changes"`
	ChangesTruncated bool          `json:"changes_truncated,omitempty"`
	FilledCount      int           `json:"filled_count"`
	TotalCount       int           `json:"total_count"`
}

// HTMLPreview is the HTML preview of a filled document.
type HTMLPreview struct {
	HTML        string `json:"html"`
	FilledCount int    `json:"filled_count"`
	TotalCount  int    `json:"total_count"`
}

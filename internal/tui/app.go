package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgallion1/docfill/internal/pipeline"
	"github.com/dgallion1/docfill/internal/placeholder"
)

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
	entryError
)

type entry struct {
	kind entryKind
	text string
}

// App drives one fill dialogue against a local orchestrator.
type App struct {
	ctx     context.Context
	orch    *pipeline.Orchestrator
	inPath  string
	outPath string

	width  int
	height int

	input   textinput.Model
	entries []entry
	scroll  int

	sessionID string
	history   []placeholder.Turn
	filled    int
	total     int
	busy      bool
	saved     bool
	quitting  bool
}

type uploadedMsg struct{ res pipeline.UploadResult }
type chatMsg struct{ res pipeline.ChatResult }
type savedMsg struct {
	path       string
	filled     int
	total      int
	unreplaced []string
}
type previewMsg struct{ text string }
type errMsg struct{ error }

// NewApp prepares a dialogue for the template at inPath. The filled
// document is written to outPath.
func NewApp(ctx context.Context, orch *pipeline.Orchestrator, inPath, outPath string) *App {
	input := textinput.New()
	input.Placeholder = "Type your answer, /preview, /save or /quit..."
	input.CharLimit = 2000
	input.Width = 60
	input.Focus()

	return &App{
		ctx:     ctx,
		orch:    orch,
		inPath:  inPath,
		outPath: outPath,
		input:   input,
		busy:    true,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), textinput.Blink, a.upload())
}

func (a *App) upload() tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(a.inPath)
		if err != nil {
			return errMsg{fmt.Errorf("read template: %w", err)}
		}
		res, err := a.orch.Upload(filepath.Base(a.inPath), data)
		if err != nil {
			return errMsg{err}
		}
		return uploadedMsg{res}
	}
}

func (a *App) chat() tea.Cmd {
	id := a.sessionID
	history := append([]placeholder.Turn(nil), a.history...)
	return func() tea.Msg {
		res, err := a.orch.Chat(a.ctx, id, history)
		if err != nil {
			return errMsg{err}
		}
		return chatMsg{res}
	}
}

func (a *App) save() tea.Cmd {
	id := a.sessionID
	history := append([]placeholder.Turn(nil), a.history...)
	return func() tea.Msg {
		out, err := a.orch.Generate(id, history)
		if err != nil {
			return errMsg{err}
		}
		if err := os.WriteFile(a.outPath, out.Data, 0o644); err != nil {
			return errMsg{fmt.Errorf("write document: %w", err)}
		}
		return savedMsg{
			path:       a.outPath,
			filled:     out.FilledCount,
			total:      out.TotalCount,
			unreplaced: out.Report.Exhausted,
		}
	}
}

func (a *App) preview() tea.Cmd {
	id := a.sessionID
	history := append([]placeholder.Turn(nil), a.history...)
	return func() tea.Msg {
		pv, err := a.orch.Preview(id, history)
		if err != nil {
			return errMsg{err}
		}
		return previewMsg{pv.Text}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := a.handleKey(msg); cmd != nil {
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(20, min(70, a.width-8))

	case uploadedMsg:
		a.busy = false
		a.sessionID = msg.res.ID
		a.total = msg.res.Count
		a.say(msg.res.Greeting)
		if msg.res.Count == 0 {
			a.busy = true
			return a, a.save()
		}

	case chatMsg:
		a.busy = false
		a.filled = msg.res.FilledCount
		a.total = msg.res.TotalCount
		a.say(msg.res.Response)
		if msg.res.AllFilled {
			a.busy = true
			return a, a.save()
		}

	case savedMsg:
		a.busy = false
		a.saved = true
		a.filled, a.total = msg.filled, msg.total
		a.notice(fmt.Sprintf("Saved %s (%d/%d placeholders filled)", msg.path, msg.filled, msg.total))
		if len(msg.unreplaced) > 0 {
			a.notice("Could not replace every occurrence of: " + strings.Join(msg.unreplaced, ", "))
		}

	case previewMsg:
		a.busy = false
		a.notice(msg.text)

	case errMsg:
		a.busy = false
		a.entries = append(a.entries, entry{kind: entryError, text: msg.Error()})
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		a.quitting = true
		return tea.Quit
	case key.Matches(msg, keys.Up):
		a.scroll += 5
		return nil
	case key.Matches(msg, keys.Down):
		a.scroll = max(0, a.scroll-5)
		return nil
	case key.Matches(msg, keys.Enter):
		return a.handleInput()
	}
	return nil
}

func (a *App) handleInput() tea.Cmd {
	input := strings.TrimSpace(a.input.Value())
	if input == "" || a.busy || a.sessionID == "" {
		return nil
	}
	a.input.Reset()
	a.scroll = 0

	// Handle slash commands
	switch strings.ToLower(input) {
	case "/quit", "/q":
		a.quitting = true
		return tea.Quit
	case "/save", "/s":
		a.busy = true
		return a.save()
	case "/preview", "/p":
		a.busy = true
		return a.preview()
	}

	a.history = append(a.history, placeholder.Turn{Role: placeholder.RoleUser, Message: input})
	a.entries = append(a.entries, entry{kind: entryUser, text: input})
	a.busy = true
	return a.chat()
}

// say records an assistant message in both the transcript and the history
// the orchestrator reads values from.
func (a *App) say(text string) {
	a.history = append(a.history, placeholder.Turn{Role: placeholder.RoleAssistant, Message: text})
	a.entries = append(a.entries, entry{kind: entryAssistant, text: text})
}

func (a *App) notice(text string) {
	a.entries = append(a.entries, entry{kind: entryNotice, text: text})
}

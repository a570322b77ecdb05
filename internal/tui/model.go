// Package tui is a terminal chat client for a single session.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/summarizer"
)

// ChatPort is the TUI-facing subset of the QA service.
type ChatPort interface {
	Ask(ctx context.Context, sessionID, question string) (domain.Answer, error)
	Reset(ctx context.Context, sessionID string) error
}

type answerMsg struct {
	question string
	answer   domain.Answer
	err      error
}

type resetMsg struct{ err error }

// Model is the Bubble Tea model for the chat client.
type Model struct {
	ctx       context.Context
	service   ChatPort
	sessionID string
	summary   string
	input     textinput.Model
	viewport  viewport.Model
	answer    domain.Answer
	question  string
	turns     int
	status    string
	cursor    int
	busy      bool
	ready     bool
}

// New creates a chat model bound to sessionID.
func New(ctx context.Context, service ChatPort, sessionID, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		service:   service,
		sessionID: sessionID,
		summary:   summary,
		input:     ti,
		viewport:  vp,
		status:    "Documents indexed. Ask away; ctrl+r clears history.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.answer = msg.answer
		m.question = msg.question
		m.cursor = 0
		m.turns++
		m.status = fmt.Sprintf("Turn %d, %d sources", m.turns, len(msg.answer.Citations))
		m.viewport.SetContent(m.render())
		return m, nil
	case resetMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.turns = 0
		m.answer = domain.Answer{}
		m.question = ""
		m.status = "History cleared."
		m.viewport.SetContent(m.render())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.input.SetValue("")
			m.status = "Thinking..."
			return m, m.ask(q)
		case "ctrl+r":
			if m.busy {
				return m, nil
			}
			return m, m.reset()
		case "down":
			if n := len(m.answer.Citations); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "up":
			if n := len(m.answer.Citations); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, m.sessionID, question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

func (m Model) reset() tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: m.service.Reset(m.ctx, m.sessionID)}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document QA")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) render() string {
	if m.question == "" {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(questionStyle.Render("Q: " + m.question))
	b.WriteString("\n\n")
	b.WriteString(m.answer.Text)
	if len(m.answer.Citations) == 0 {
		return b.String()
	}
	c := m.answer.Citations[m.cursor]
	b.WriteString("\n\n")
	b.WriteString(sourceStyle.Render(fmt.Sprintf("Source %d/%d  %s", m.cursor+1, len(m.answer.Citations), citationLabel(c))))
	b.WriteString("\n")
	b.WriteString(highlightBestSentence(c.Snippet, m.question))
	return b.String()
}

func citationLabel(c domain.Citation) string {
	if c.Page == nil {
		return c.Source
	}
	return fmt.Sprintf("%s, page %d", c.Source, *c.Page)
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := summarizer.Sentences(text)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

// Package tui is the interactive front-end. It consumes the same HTTP
// operations the service exposes to other callers.
package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"medrag/internal/domain"
)

// Port is the TUI-facing subset of the service operations.
type Port interface {
	Retrieve(query string, k int) ([]domain.RetrievedChunk, error)
	Query(question string) (domain.AnswerWithCitations, error)
}

type mode int

const (
	modeAsk mode = iota
	modeRetrieve
)

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	api       Port
	input     textinput.Model
	viewport  viewport.Model
	mode      mode
	answer    *domain.AnswerWithCitations
	results   []domain.RetrievedChunk
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(api Port) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (ctrl+r toggles retrieve-only)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{api: api, input: ti, viewport: vp, status: "Connected. Type a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+r":
			if m.mode == modeAsk {
				m.mode = modeRetrieve
				m.status = "Retrieve-only mode."
			} else {
				m.mode = modeAsk
				m.status = "Ask mode."
			}
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.lastQuery = q
			if m.mode == modeRetrieve {
				res, err := m.api.Retrieve(q, 10)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.results = nil
				} else {
					m.status = fmt.Sprintf("Chunks for %q", q)
					m.results = res
					m.cursor = 0
				}
			} else {
				ans, err := m.api.Query(q)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.answer = nil
				} else {
					m.status = fmt.Sprintf("Answer for %q", q)
					m.answer = &ans
				}
			}
			m.viewport.SetContent(m.renderContent())
			return m, nil
		case "down":
			if m.mode == modeRetrieve && len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "up":
			if m.mode == modeRetrieve && len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current content.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("MedRAG — biomedical literature QA")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	content := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + content + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.mode == modeRetrieve {
		return m.renderCurrentResult()
	}
	return m.renderAnswer()
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(m.answer.Answer)
	if len(m.answer.Citations) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, c := range m.answer.Citations {
			b.WriteString(fmt.Sprintf("[%d] %s — %s\n", i+1, c.PMCID, c.Snippet))
		}
	}
	return b.String()
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Chunk %d/%d  %s (%s)  score=%.3f",
		m.cursor+1, len(m.results), r.Record.PMCID, r.Record.SectionTitle, r.Score)
	body := highlightBestSentence(r.Record.Text, m.lastQuery)
	return title + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
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
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
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

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

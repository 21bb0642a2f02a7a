// Package tui is the interactive payroll chat console.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"payrollrag/internal/assistant"
	"payrollrag/internal/domain"
	"payrollrag/internal/textnorm"
)

// Asker is the TUI-facing side of the assistant.
type Asker interface {
	Ask(ctx context.Context, msg string) assistant.Answer
	Conversation() *assistant.Conversation
}

// Model is the Bubble Tea model for the chat console.
type Model struct {
	ctx       context.Context
	assistant Asker
	input     textinput.Model
	viewport  viewport.Model
	answer    string
	results   []domain.SearchResult
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
	exportDir string
}

// New creates the chat model. summary is shown under the title.
func New(ctx context.Context, a Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Pergunte sobre a folha de pagamento e pressione Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		assistant: a,
		input:     ti,
		viewport:  vp,
		summary:   summary,
		status:    "Pronto. Digite sua pergunta. Ctrl+L limpa, Ctrl+E exporta a conversa.",
		exportDir: ".",
	}
}

// WithExportDir sets where Ctrl+E writes conversation exports.
func (m Model) WithExportDir(dir string) Model {
	m.exportDir = dir
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // title + summary, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			ans := m.assistant.Ask(m.ctx, q)
			m.answer = ans.Text
			m.results = nil
			if ans.Search != nil {
				m.results = ans.Search.Results
			}
			m.cursor = 0
			m.lastQuery = q
			m.status = fmt.Sprintf("Intenção: %s (confiança %.2f)", ans.Intent, ans.Confidence)
			if ans.Search != nil && ans.Search.Status != domain.StatusOK {
				m.status += " · busca: " + ans.Search.Status.String()
			}
			if lookup, _ := m.assistant.Conversation().LastMetadata()["lookup"].(string); lookup != "" {
				m.status += " · consulta: " + lookup
			}
			m.input.SetValue("")
			m.viewport.SetContent(m.renderAnswer())
			m.viewport.GotoTop()
			return m, nil
		case "ctrl+l":
			m.assistant.Conversation().Clear()
			m.answer, m.results, m.cursor, m.lastQuery = "", nil, 0, ""
			m.status = "Conversa limpa."
			m.viewport.SetContent(m.renderAnswer())
			return m, nil
		case "ctrl+e":
			path, err := m.export()
			if err != nil {
				m.status = "Falha ao exportar: " + err.Error()
			} else {
				m.status = "Conversa exportada para " + path
			}
			return m, nil
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) export() (string, error) {
	exp := m.assistant.Conversation().Export()
	raw, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(m.exportDir, "conversation-"+exp.ID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Carregando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Assistente de Folha de Pagamento")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == "" {
		return "Nenhuma pergunta ainda."
	}
	if len(m.results) == 0 {
		return m.answer
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Registro %d/%d  score=%.3f  (↑/↓)", m.cursor+1, len(m.results), r.Score)
	return m.answer + "\n\n" + dimStyle.Render(title) + "\n" + highlightBestLine(r.Chunk.Text, m.lastQuery)
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	wordRe         = regexp.MustCompile(`\p{L}+`)
)

// highlightBestLine marks the chunk line sharing the most words with query.
// Ties go to the first line.
func highlightBestLine(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestIdx := 0
	bestScore := -1
	for i, l := range lines {
		score := tokenOverlapScore(qTokens, l)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return text
	}
	lines[bestIdx] = highlightStyle.Render(lines[bestIdx])
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(textnorm.Fold(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, line string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range wordRe.FindAllString(textnorm.Fold(line), -1) {
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

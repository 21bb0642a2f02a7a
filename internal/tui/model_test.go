package tui

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollrag/internal/assistant"
	"payrollrag/internal/domain"
)

type fakeAsker struct {
	asked  []string
	answer assistant.Answer
	conv   *assistant.Conversation
}

func (f *fakeAsker) Ask(_ context.Context, msg string) assistant.Answer {
	f.asked = append(f.asked, msg)
	f.conversation().Add(assistant.RoleUser, msg, nil)
	f.conversation().Add(assistant.RoleAssistant, f.answer.Text, map[string]any{"lookup": f.answer.Lookup})
	return f.answer
}

func (f *fakeAsker) Conversation() *assistant.Conversation { return f.conversation() }

func (f *fakeAsker) conversation() *assistant.Conversation {
	if f.conv == nil {
		f.conv = assistant.NewConversation(0)
	}
	return f.conv
}

func chunk(id, text string) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{ID: id, Text: text}, Score: 0.5}
}

func TestHighlightBestLine(t *testing.T) {
	text := "Funcionário: Ana Souza (ID: E001)\nSalário Base: R$ 3.000,00\nPagamento Líquido: R$ 3.500,00"

	got := highlightBestLine(text, "pagamento liquido")
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Funcionário: Ana Souza (ID: E001)", lines[0])
	assert.Equal(t, "Salário Base: R$ 3.000,00", lines[1])
	assert.Contains(t, lines[2], "Pagamento Líquido: R$ 3.500,00")

	assert.Equal(t, text, highlightBestLine(text, "xyz"))
	assert.Equal(t, text, highlightBestLine(text, "   "))
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("Salário da ANA")
	assert.Equal(t, 2, tokenOverlapScore(q, "ana ana salario"))
	assert.Equal(t, 0, tokenOverlapScore(q, "Bruno"))
}

func press(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestUpdate_EnterAsksAndBrowses(t *testing.T) {
	fa := &fakeAsker{answer: assistant.Answer{
		Text:   "Encontrei 2 resultados",
		Intent: assistant.IntentPayroll,
		Search: &domain.SearchResponse{Status: domain.StatusOK, Results: []domain.SearchResult{
			chunk("chunk_2", "Funcionário: Ana"), chunk("chunk_8", "Funcionário: Bruno"),
		}},
	}}
	m := New(context.Background(), fa, "12 registros")
	m = press(m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m.input.SetValue("salário da Ana")

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"salário da Ana"}, fa.asked)
	assert.Empty(t, m.input.Value())
	assert.Len(t, m.results, 2)
	assert.Contains(t, m.status, "payroll_query")
	assert.Contains(t, m.renderAnswer(), "Registro 1/2")

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)
	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderAnswer(), "Funcionário: Bruno")
}

func TestUpdate_EmptyInputDoesNotAsk(t *testing.T) {
	fa := &fakeAsker{}
	m := New(context.Background(), fa, "")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, fa.asked)
	assert.Equal(t, "Nenhuma pergunta ainda.", m.renderAnswer())
}

func TestView_LoadingUntilSized(t *testing.T) {
	m := New(context.Background(), &fakeAsker{}, "resumo")
	assert.Equal(t, "Carregando...", m.View())
	m = press(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "resumo")
}

func TestUpdate_ClearConversation(t *testing.T) {
	fa := &fakeAsker{answer: assistant.Answer{Text: "Olá!", Intent: assistant.IntentGeneral}}
	m := press(New(context.Background(), fa, ""), tea.WindowSizeMsg{Width: 80, Height: 24})
	m.input.SetValue("oi")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, fa.Conversation().Messages(), 2)

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Empty(t, fa.Conversation().Messages())
	assert.Empty(t, m.answer)
	assert.Empty(t, m.results)
	assert.Equal(t, "Conversa limpa.", m.status)
}

func TestUpdate_ExportConversation(t *testing.T) {
	dir := t.TempDir()
	fa := &fakeAsker{answer: assistant.Answer{Text: "Encontrei", Intent: assistant.IntentPayroll, Lookup: assistant.LookupExact}}
	m := press(New(context.Background(), fa, "").WithExportDir(dir), tea.WindowSizeMsg{Width: 80, Height: 24})
	m.input.SetValue("salário da Ana em março")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "consulta: exact")

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlE})

	path := filepath.Join(dir, "conversation-"+fa.Conversation().ID()+".json")
	assert.Equal(t, "Conversa exportada para "+path, m.status)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var exp assistant.Export
	require.NoError(t, json.Unmarshal(raw, &exp))
	assert.Equal(t, fa.Conversation().ID(), exp.ID)
	assert.Equal(t, 2, exp.TotalMessages)
	assert.Equal(t, "salário da Ana em março", exp.Messages[0].Content)
}

func TestUpdate_ExportFailureShowsStatus(t *testing.T) {
	fa := &fakeAsker{}
	m := New(context.Background(), fa, "").WithExportDir(filepath.Join(t.TempDir(), "missing"))

	m = press(m, tea.KeyMsg{Type: tea.KeyCtrlE})

	assert.True(t, strings.HasPrefix(m.status, "Falha ao exportar: "), m.status)
}

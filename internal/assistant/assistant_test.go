package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrollrag/internal/chunker"
	"payrollrag/internal/domain"
	"payrollrag/internal/embedding/embeddingtest"
	"payrollrag/internal/engine"
	"payrollrag/internal/query"
)

var names = []string{"Ana Souza", "Bruno Lima"}

func TestClassify(t *testing.T) {
	c := NewClassifier(names)
	tests := []struct {
		msg  string
		want Intent
	}{
		{"Qual o salário líquido da Ana em março?", IntentPayroll},
		{"Mostre os pagamentos do Bruno Lima", IntentPayroll},
		{"bônus do E002", IntentPayroll},
		{"Quantos registros existem no total?", IntentStats},
		{"me ajuda", IntentHelp},
		{"Como funciona o salário?", IntentHelp},
		{"Olá, tudo bem?", IntentGeneral},
	}
	for _, tt := range tests {
		got, conf := c.Classify(tt.msg)
		assert.Equal(t, tt.want, got, tt.msg)
		assert.Greater(t, conf, 0.0, tt.msg)
		assert.LessOrEqual(t, conf, 1.0, tt.msg)
	}

	_, conf := c.Classify("tudo bem?")
	assert.Equal(t, 0.5, conf)
}

func TestClassify_StatsMustStrictlyWin(t *testing.T) {
	c := NewClassifier(names)
	// one stats hit ("total") against one payroll hit ("salario")
	got, _ := c.Classify("salário total")
	assert.Equal(t, IntentPayroll, got)
}

func TestExtractFilters(t *testing.T) {
	lex := query.NewLexicon(names, nil)
	comps := []string{"2024-03", "2025-01", "2025-03"}

	c := ExtractFilters("pagamentos da Ana em março", lex, comps)
	assert.Equal(t, "Ana Souza", c.Name)
	assert.Equal(t, "2025-03", c.Competency)

	c = ExtractFilters("folha do e002 em 2024-03", lex, comps)
	assert.Equal(t, "E002", c.EmployeeID)
	assert.Equal(t, "2024-03", c.Competency)
	assert.Empty(t, c.Name)

	c = ExtractFilters("Bruno em 02/2025", lex, comps)
	assert.Equal(t, "Bruno Lima", c.Name)
	assert.Equal(t, "2025-02", c.Competency)

	assert.True(t, ExtractFilters("olá", lex, comps).IsZero())
}

func TestReply(t *testing.T) {
	assert.Equal(t, greetingReply, Reply("Oi!"))
	assert.Equal(t, helpReply, Reply("preciso de ajuda"))
	assert.Equal(t, thanksReply, Reply("valeu"))
	assert.Equal(t, fallbackReply, Reply("e o tempo hoje?"))
	// "oi" inside another word is not a greeting
	assert.Equal(t, fallbackReply, Reply("depois"))
}

func result(row int, r domain.Record) domain.SearchResult {
	return domain.SearchResult{Chunk: chunker.Build(row, r), Score: 0.9}
}

var ana = domain.Record{
	EmployeeID: "E001", Name: "Ana Souza", Competency: "2025-03",
	BaseSalary: 3000, Bonus: 500, Benefits: 400, DeductionINSS: 330, DeductionIRRF: 70, NetPay: 3500,
	PaymentDate: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
}

func TestCompose_MentionedFields(t *testing.T) {
	resp := domain.SearchResponse{Status: domain.StatusOK, Results: []domain.SearchResult{result(2, ana)}}

	got := Compose("qual o líquido e a data de pagamento da Ana?", resp)

	assert.True(t, strings.HasPrefix(got, "Encontrei a seguinte informação:"))
	assert.Contains(t, got, "**Ana Souza** (ID: E001) - Competência: 2025-03")
	assert.Contains(t, got, "• Pagamento Líquido: R$ 3.500,00")
	assert.Contains(t, got, "• Data de Pagamento: 31/03/2025")
	assert.NotContains(t, got, "Desconto INSS")
	assert.True(t, strings.HasSuffix(got, "_Fonte: linhas 4 do dataset de folha de pagamento._"))
}

func TestCompose_SummaryAndLimit(t *testing.T) {
	var results []domain.SearchResult
	for i := 0; i < 5; i++ {
		results = append(results, result(i, ana))
	}
	got := Compose("me mostra a Ana", domain.SearchResponse{Status: domain.StatusOK, Results: results})

	assert.Contains(t, got, "Encontrei 3 resultados:")
	assert.Contains(t, got, "3. **Ana Souza**")
	assert.NotContains(t, got, "4. **Ana Souza**")
	assert.Contains(t, got, "• Bônus: R$ 500,00")
	assert.Contains(t, got, "linhas 2, 3, 4 do dataset")
}

func TestCompose_Statuses(t *testing.T) {
	assert.Equal(t, rejectedReply, Compose("x", domain.SearchResponse{Status: domain.StatusRejected}))
	assert.Equal(t, degradedReply, Compose("x", domain.SearchResponse{Status: domain.StatusDegraded}))
	assert.Equal(t, noMatchReply, Compose("x", domain.SearchResponse{Status: domain.StatusOK}))
	assert.Equal(t, fallbackReply, Compose("", domain.SearchResponse{Status: domain.StatusEmptyQuery}))
}

func TestFormatStatistics(t *testing.T) {
	got := FormatStatistics(domain.Statistics{
		TotalRecords: 12, UniqueEmployees: 2, Competencies: []string{"2025-01", "2025-02"},
		AvgNetPay: 3991.666, MaxNetPay: 5500, MinNetPay: 3000, TotalPaid: 47900,
	})
	assert.Contains(t, got, "• Total de Registros: 12")
	assert.Contains(t, got, "• Competências: 2025-01, 2025-02")
	assert.Contains(t, got, "• Pagamento Médio: R$ 3.991,67")
	assert.Contains(t, got, "• Total Pago (período): R$ 47.900,00")
}

func TestConversation_BoundedHistory(t *testing.T) {
	c := NewConversation(3)
	for i := 0; i < 5; i++ {
		c.Add(RoleUser, strings.Repeat("x", i+1), map[string]any{"n": i})
	}
	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "xxx", msgs[0].Content)
	assert.Equal(t, map[string]any{"n": 4}, c.LastMetadata())

	exp := c.Export()
	assert.Equal(t, c.ID(), exp.ID)
	assert.Equal(t, 3, exp.TotalMessages)
	_, err := json.Marshal(exp)
	assert.NoError(t, err)

	c.Clear()
	assert.Empty(t, c.Messages())
	assert.Nil(t, c.LastMetadata())
	assert.Equal(t, exp.ID, c.ID())
}

func TestConversation_DefaultLimit(t *testing.T) {
	c := NewConversation(0)
	for i := 0; i < DefaultMaxHistory+4; i++ {
		c.Add(RoleUser, "m", nil)
	}
	assert.Len(t, c.Messages(), DefaultMaxHistory)
	assert.NotEqual(t, c.ID(), NewConversation(0).ID())
}

func newAssistant(t *testing.T) (*Assistant, *embeddingtest.Counting) {
	t.Helper()
	emb := embeddingtest.NewCounting("")
	e, err := engine.New(context.Background(), engine.Options{
		DatasetPath: "testdata/payroll.csv",
		Embedder:    emb,
	})
	require.NoError(t, err)
	return New(e, 10), emb
}

func TestAsk_Payroll(t *testing.T) {
	a, emb := newAssistant(t)

	ans := a.Ask(context.Background(), "Qual o salário líquido da Ana em março?")

	assert.Equal(t, IntentPayroll, ans.Intent)
	assert.Equal(t, LookupExact, ans.Lookup)
	require.NotNil(t, ans.Search)
	require.Len(t, ans.Search.Results, 1)
	assert.Equal(t, "2025-03", ans.Search.Results[0].Chunk.Record.Competency)
	assert.Contains(t, ans.Text, "Encontrei a seguinte informação:\n\n**Ana Souza** (ID: E001) - Competência: 2025-03")
	assert.Contains(t, ans.Text, "• Pagamento Líquido: R$ 3.500,00")
	assert.Contains(t, ans.Text, "_Fonte: linhas 4 do dataset")
	assert.Zero(t, emb.Queries())

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	meta := a.Conversation().LastMetadata()
	assert.Equal(t, string(IntentPayroll), meta["intent"])
	assert.Equal(t, "ok", meta["status"])
	assert.Equal(t, LookupExact, meta["lookup"])
	assert.Equal(t, 1, meta["context_size"])
	assert.Equal(t, []int{2}, meta["sources"])
}

func TestAsk_SemanticWithoutFullCriteria(t *testing.T) {
	a, emb := newAssistant(t)

	ans := a.Ask(context.Background(), "qual o bônus do Bruno?")

	assert.Equal(t, IntentPayroll, ans.Intent)
	assert.Equal(t, LookupSemantic, ans.Lookup)
	require.NotNil(t, ans.Search)
	assert.Equal(t, domain.StatusOK, ans.Search.Status)
	assert.NotEmpty(t, ans.Search.Results)
	assert.Equal(t, int64(1), emb.Queries())
}

func TestAsk_ExactLookupMissFallsThrough(t *testing.T) {
	a, emb := newAssistant(t)

	// the fixture has no December payroll
	ans := a.Ask(context.Background(), "salário da Ana em 2025-12")

	assert.Equal(t, LookupSemantic, ans.Lookup)
	assert.Equal(t, int64(1), emb.Queries())
}

func TestAsk_StatisticsAndChat(t *testing.T) {
	a, emb := newAssistant(t)

	ans := a.Ask(context.Background(), "Quantos registros existem no total?")
	assert.Equal(t, IntentStats, ans.Intent)
	require.NotNil(t, ans.Stats)
	assert.Equal(t, 12, ans.Stats.TotalRecords)
	assert.Contains(t, ans.Text, "• Total Pago (período): R$ 47.900,00")

	ans = a.Ask(context.Background(), "obrigado")
	assert.Equal(t, IntentGeneral, ans.Intent)
	assert.Equal(t, thanksReply, ans.Text)

	assert.Zero(t, emb.Queries())
	assert.Len(t, a.Conversation().Messages(), 4)
}

func TestAsk_DegradedFallsBackToFilters(t *testing.T) {
	a, emb := newAssistant(t)
	emb.Fail()

	ans := a.Ask(context.Background(), "qual o bônus do Bruno?")

	assert.Equal(t, LookupFallback, ans.Lookup)
	require.NotNil(t, ans.Search)
	assert.Equal(t, domain.StatusOK, ans.Search.Status)
	assert.Error(t, ans.Search.Err)
	require.Len(t, ans.Search.Results, 6)
	for _, r := range ans.Search.Results {
		assert.Equal(t, "E002", r.Chunk.Record.EmployeeID)
	}
	assert.True(t, strings.HasPrefix(ans.Text, fallbackNote+"\n\nEncontrei 3 resultados:"), ans.Text)
	assert.Contains(t, ans.Text, "1. **Bruno Lima** (ID: E002) - Competência: 2025-01")
	assert.Equal(t, LookupFallback, a.Conversation().LastMetadata()["lookup"])
}

func TestAsk_DegradedWithoutCriteria(t *testing.T) {
	a, emb := newAssistant(t)
	emb.Fail()

	ans := a.Ask(context.Background(), "qual o maior bônus pago?")

	assert.Equal(t, LookupSemantic, ans.Lookup)
	assert.Equal(t, degradedReply, ans.Text)
	assert.Equal(t, "degraded", a.Conversation().LastMetadata()["status"])
}

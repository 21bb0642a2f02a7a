package assistant

import (
	"fmt"
	"strconv"
	"strings"

	"payrollrag/internal/chunker"
	"payrollrag/internal/domain"
	"payrollrag/internal/textnorm"
)

// Maximum number of records rendered in one answer.
const maxAnswerRecords = 3

const (
	greetingReply = "Olá! Sou seu assistente de folha de pagamento. Posso ajudar você com informações sobre salários, bônus, descontos e datas de pagamento. Como posso ajudar?"
	helpReply     = `Posso ajudar você com:
• Consultas sobre folha de pagamento de funcionários
• Informações sobre salários, bônus e descontos
• Dados de competência específica (ex: janeiro/2025)
• Comparações entre períodos
• Estatísticas gerais

Tente perguntar algo como: "Qual o salário líquido da Ana em março de 2025?" ou "Mostre os pagamentos do Bruno Lima".`
	thanksReply   = "Por nada! Fico feliz em ajudar. Se precisar de mais alguma informação, é só perguntar!"
	fallbackReply = "Entendo sua pergunta. Para consultas sobre folha de pagamento, posso buscar informações específicas por nome, competência ou período. Poderia reformular sua pergunta incluindo um nome de funcionário ou período?"
	noMatchReply  = "Não encontrei registros de folha de pagamento relacionados à sua pergunta."
	rejectedReply = "Sua mensagem contém conteúdo não permitido e não foi processada."
	degradedReply = "Desculpe, a busca está indisponível no momento. Tente novamente em instantes."
	fallbackNote  = "_A busca semântica está indisponível; mostrando os registros que correspondem aos filtros da pergunta._"
)

// Reply answers a message that needs no data: greetings, help, thanks.
func Reply(msg string) string {
	m := newMentions(msg)
	switch {
	case m.any("ola", "oi", "bom dia", "boa tarde", "boa noite"):
		return greetingReply
	case m.any("ajuda", "help", "o que voce faz"):
		return helpReply
	case m.any("obrigado", "obrigada", "valeu"):
		return thanksReply
	default:
		return fallbackReply
	}
}

// mentions answers "does the message mention this word or phrase" on the
// folded text. Single words must match a whole token.
type mentions struct {
	folded string
	tokens map[string]struct{}
}

func newMentions(msg string) mentions {
	f := textnorm.Fold(msg)
	m := mentions{folded: f, tokens: make(map[string]struct{})}
	for _, tok := range strings.FieldsFunc(f, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		m.tokens[tok] = struct{}{}
	}
	return m
}

func (m mentions) any(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(p, " ") {
			if strings.Contains(m.folded, p) {
				return true
			}
			continue
		}
		if _, ok := m.tokens[p]; ok {
			return true
		}
	}
	return false
}

type field struct {
	keywords []string
	label    string
	value    func(domain.Record) string
}

func money(get func(domain.Record) float64) func(domain.Record) string {
	return func(r domain.Record) string { return chunker.FormatBRL(get(r)) }
}

var fields = []field{
	{[]string{"liquido", "net", "total"}, "Pagamento Líquido", money(func(r domain.Record) float64 { return r.NetPay })},
	{[]string{"salario", "base"}, "Salário Base", money(func(r domain.Record) float64 { return r.BaseSalary })},
	{[]string{"bonus"}, "Bônus", money(func(r domain.Record) float64 { return r.Bonus })},
	{[]string{"inss"}, "Desconto INSS", money(func(r domain.Record) float64 { return r.DeductionINSS })},
	{[]string{"irrf", "imposto"}, "Desconto IRRF", money(func(r domain.Record) float64 { return r.DeductionIRRF })},
	{[]string{"beneficio", "vt", "vr"}, "Benefícios (VT/VR)", money(func(r domain.Record) float64 { return r.Benefits })},
	{[]string{"data", "quando", "pagamento"}, "Data de Pagamento", func(r domain.Record) string { return chunker.FormatDate(r.PaymentDate) }},
}

// Compose renders an answer from a search response. Only the fields the
// message mentions are listed; with none mentioned a short summary is shown.
// The footer cites the CSV lines the records came from.
func Compose(msg string, resp domain.SearchResponse) string {
	switch resp.Status {
	case domain.StatusRejected:
		return rejectedReply
	case domain.StatusDegraded:
		return degradedReply
	case domain.StatusEmptyQuery:
		return Reply(msg)
	}
	results := resp.Results
	if len(results) == 0 {
		return noMatchReply
	}
	if len(results) > maxAnswerRecords {
		results = results[:maxAnswerRecords]
	}

	m := newMentions(msg)
	blocks := make([]string, len(results))
	lines := make([]string, len(results))
	for i, res := range results {
		r := res.Chunk.Record
		parts := []string{fmt.Sprintf("**%s** (ID: %s) - Competência: %s", r.Name, r.EmployeeID, r.Competency)}
		for _, fd := range fields {
			if m.any(fd.keywords...) {
				parts = append(parts, "• "+fd.label+": "+fd.value(r))
			}
		}
		if len(parts) == 1 {
			parts = append(parts,
				"• Salário Base: "+chunker.FormatBRL(r.BaseSalary),
				"• Bônus: "+chunker.FormatBRL(r.Bonus),
				"• Pagamento Líquido: "+chunker.FormatBRL(r.NetPay),
			)
		}
		blocks[i] = strings.Join(parts, "\n")
		// the CSV header is line 1
		lines[i] = strconv.Itoa(res.Chunk.Row + 2)
	}

	var b strings.Builder
	if len(blocks) == 1 {
		b.WriteString("Encontrei a seguinte informação:\n\n")
		b.WriteString(blocks[0])
	} else {
		fmt.Fprintf(&b, "Encontrei %d resultados:\n\n", len(blocks))
		for i, blk := range blocks {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "%d. %s", i+1, blk)
		}
	}
	fmt.Fprintf(&b, "\n\n_Fonte: linhas %s do dataset de folha de pagamento._", strings.Join(lines, ", "))
	return b.String()
}

// FormatStatistics renders the dataset summary.
func FormatStatistics(st domain.Statistics) string {
	var b strings.Builder
	b.WriteString("**Estatísticas do Dataset de Folha de Pagamento:**\n\n")
	fmt.Fprintf(&b, "• Total de Registros: %d\n", st.TotalRecords)
	fmt.Fprintf(&b, "• Funcionários Únicos: %d\n", st.UniqueEmployees)
	fmt.Fprintf(&b, "• Competências: %s\n", strings.Join(st.Competencies, ", "))
	fmt.Fprintf(&b, "• Pagamento Médio: %s\n", chunker.FormatBRL(st.AvgNetPay))
	fmt.Fprintf(&b, "• Maior Pagamento: %s\n", chunker.FormatBRL(st.MaxNetPay))
	fmt.Fprintf(&b, "• Menor Pagamento: %s\n", chunker.FormatBRL(st.MinNetPay))
	fmt.Fprintf(&b, "• Total Pago (período): %s\n", chunker.FormatBRL(st.TotalPaid))
	return b.String()
}

// Package assistant turns a user message into an answer: it classifies the
// intent, routes to search or statistics, renders the reply and keeps the
// conversation history.
package assistant

import (
	"regexp"
	"sort"
	"strings"

	"payrollrag/internal/domain"
	"payrollrag/internal/query"
	"payrollrag/internal/textnorm"
)

// Intent is the routing decision for a message.
type Intent string

const (
	IntentPayroll Intent = "payroll_query"
	IntentGeneral Intent = "general_chat"
	IntentStats   Intent = "statistics"
	IntentHelp    Intent = "help"
)

// Patterns are matched against the folded (lower case, accent free) message.
var (
	basePayrollPatterns = []string{
		`\b(salario|pagamento|liquido)\b`,
		`\bbonus\b`,
		`\b(inss|irrf|desconto|descontos)\b`,
		`\b(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\b`,
		`\b(\d{4}-\d{2})\b`,
		`\bcompetencia\b`,
		`\b(beneficio|beneficios|vt|vr)\b`,
		`\b(e\d{3})\b`,
	}
	statsPatterns = compile(
		`\b(estatistica|estatisticas|media|total|soma)\b`,
		`\b(quantos|quantas|quanto)\b`,
		`\b(todos|todas|geral)\b`,
	)
	helpPatterns = compile(
		`\b(ajuda|help|como)\b`,
		`\b(o que voce faz)\b`,
		`\b(pode fazer|consegue fazer)\b`,
	)
	employeeIDRe = regexp.MustCompile(`(?i)\b(e\d{3})\b`)
	competencyRe = regexp.MustCompile(`\b(\d{4}-(?:0[1-9]|1[0-2]))\b`)
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Classifier scores a message against keyword tables. Employee names from
// the loaded dataset extend the payroll table.
type Classifier struct {
	payroll []*regexp.Regexp
}

// NewClassifier builds a classifier that also recognises the given names.
func NewClassifier(names []string) *Classifier {
	patterns := append([]string(nil), basePayrollPatterns...)
	var words []string
	seen := make(map[string]struct{})
	for _, n := range names {
		for _, w := range strings.Fields(textnorm.Fold(n)) {
			if _, ok := seen[w]; ok || len(w) < 2 {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, regexp.QuoteMeta(w))
		}
	}
	if len(words) > 0 {
		sort.Strings(words)
		patterns = append([]string{`\b(` + strings.Join(words, "|") + `)\b`}, patterns...)
	}
	return &Classifier{payroll: compile(patterns...)}
}

// Classify returns the intent of msg and a confidence in [0, 1]. Help wins
// outright; otherwise statistics must strictly outscore payroll.
func (c *Classifier) Classify(msg string) (Intent, float64) {
	f := textnorm.Fold(msg)
	if n := count(helpPatterns, f); n > 0 {
		return IntentHelp, ratio(n, len(helpPatterns))
	}
	stats := count(statsPatterns, f)
	payroll := count(c.payroll, f)
	switch {
	case stats == 0 && payroll == 0:
		return IntentGeneral, 0.5
	case stats > payroll:
		return IntentStats, ratio(stats, len(statsPatterns))
	default:
		return IntentPayroll, ratio(payroll, len(c.payroll))
	}
}

func count(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(s) {
			n++
		}
	}
	return n
}

func ratio(n, total int) float64 {
	return min(float64(n)/float64(total), 1.0)
}

// ExtractFilters maps a message to structured criteria: an employee known to
// lex, a competency and an employee id. A bare month name resolves to the
// latest matching competency in competencies.
func ExtractFilters(msg string, lex *query.Lexicon, competencies []string) domain.Criteria {
	var c domain.Criteria
	if s := lex.ExtractEmployee(msg); s.Found() {
		c.Name = s.Value
	}
	if m := competencyRe.FindStringSubmatch(msg); m != nil {
		c.Competency = m[1]
	} else if s := query.ExtractMonth(msg); s.Found() {
		if len(s.Value) > 2 {
			c.Competency = s.Value
		} else {
			for _, comp := range competencies {
				if s.MatchesCompetency(comp) && comp > c.Competency {
					c.Competency = comp
				}
			}
		}
	}
	if m := employeeIDRe.FindStringSubmatch(msg); m != nil {
		c.EmployeeID = strings.ToUpper(m[1])
	}
	return c
}

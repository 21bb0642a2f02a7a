package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	rejected := []string{
		"'; DROP TABLE payroll; --",
		"delete   from folha",
		"INSERT INTO x values (1)",
		"update payroll set net_pay = 0",
		"update set",
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"JavaScript:alert(1)",
	}
	for _, q := range rejected {
		got, ok := Sanitize(q)
		assert.False(t, ok, q)
		assert.Empty(t, got, q)
	}

	got, ok := Sanitize("  salário líquido da Ana em março  ")
	assert.True(t, ok)
	assert.Equal(t, "salário líquido da Ana em março", got)

	_, ok = Sanitize("qual a data de pagamento atualizada?")
	assert.True(t, ok)
}

func TestExtractMonth(t *testing.T) {
	tests := []struct {
		q    string
		want Signal
	}{
		{"salário líquido da Ana em março", Signal{SignalMonth, "03"}},
		{"pagamento de MARCO", Signal{SignalMonth, "03"}},
		{"bônus em dez", Signal{SignalMonth, "12"}},
		{"folha de fev/2025", Signal{SignalMonth, "02"}},
		{"competência 2025-05", Signal{SignalMonth, "2025-05"}},
		{"pagamento 4/2025", Signal{SignalMonth, "2025-04"}},
		{"quanto recebi no mês 6?", Signal{SignalMonth, "06"}},
		{"salário da Ana", None},
		{"marcos recebeu?", None},
		{"salário da Ana em 03", Signal{SignalMonth, "03"}},
		{"pagamento 05 do Bruno", Signal{SignalMonth, "05"}},
		{"folha 12.", Signal{SignalMonth, "12"}},
		{"31/03/2025", Signal{SignalMonth, "2025-03"}},
		{"março e depois 05", Signal{SignalMonth, "03"}},
		{"quanto é dez por cento do salário", None},
		{"dez reais a mais", None},
		{"aumento de 10%", None},
		{"líquido acima de R$ 12", None},
		{"salário de 1.200,10", None},
		{"às 10:30", None},
		{"funcionário E002", None},
		{"pagamento de 2025", None},
		{"dez por cento em 04", Signal{SignalMonth, "04"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractMonth(tt.q), tt.q)
	}
}

func TestSignal_MatchesCompetency(t *testing.T) {
	march := Signal{SignalMonth, "03"}
	assert.True(t, march.MatchesCompetency("2025-03"))
	assert.False(t, march.MatchesCompetency("2003-01"))

	full := Signal{SignalMonth, "2025-03"}
	assert.True(t, full.MatchesCompetency("2025-03"))
	assert.False(t, full.MatchesCompetency("2024-03"))

	assert.False(t, None.MatchesCompetency("2025-03"))
}

func TestLexicon_ExtractEmployee(t *testing.T) {
	l := NewLexicon([]string{"Ana Souza", "Bruno Lima", "Ana Paula Costa"}, map[string][]string{
		"Bruno Lima": {"Bruninho"},
	})

	tests := []struct {
		q    string
		want Signal
	}{
		{"salário da Ana Souza", Signal{SignalEmployee, "Ana Souza"}},
		{"quanto o souza recebeu", Signal{SignalEmployee, "Ana Souza"}},
		{"pagamento do Bruno", Signal{SignalEmployee, "Bruno Lima"}},
		{"bônus do bruninho", Signal{SignalEmployee, "Bruno Lima"}},
		{"salário da Costa", Signal{SignalEmployee, "Ana Paula Costa"}},
		// "Ana" belongs to two employees
		{"salário da Ana", None},
		{"salário da Mariana", None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.ExtractEmployee(tt.q), tt.q)
	}
	assert.Equal(t, []string{"Ana Souza", "Bruno Lima", "Ana Paula Costa"}, l.Names())
}

func TestLexicon_FirstNameWhenUnique(t *testing.T) {
	l := NewLexicon([]string{"Ana Souza", "Bruno Lima"}, nil)

	assert.Equal(t, Signal{SignalEmployee, "Ana Souza"}, l.ExtractEmployee("salário líquido da Ana em março"))
}

func TestLexicon_Nil(t *testing.T) {
	var l *Lexicon

	assert.Equal(t, None, l.ExtractEmployee("Ana"))
}

func TestSignal_MatchesName(t *testing.T) {
	s := Signal{SignalEmployee, "Jose Antonio"}

	assert.True(t, s.MatchesName("José Antônio"))
	assert.False(t, s.MatchesName("Ana Souza"))
	assert.False(t, Signal{SignalMonth, "03"}.MatchesName("Ana Souza"))
}

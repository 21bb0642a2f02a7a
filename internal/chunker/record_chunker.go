// Package chunker renders payroll records as descriptive Portuguese text,
// one chunk per record. The rendering is byte-stable: the same record always
// produces the same text, which keeps cached embeddings valid.
package chunker

import (
	"math"
	"strconv"
	"strings"
	"time"

	"payrollrag/internal/domain"
)

// NoDate is rendered in place of a payment date that could not be parsed.
const NoDate = "não informada"

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the Portuguese name of a two-digit month ("03" → "março").
// Unknown values are returned unchanged.
func MonthName(mm string) string {
	n, err := strconv.Atoi(mm)
	if err != nil || n < 1 || n > 12 {
		return mm
	}
	return monthNames[n-1]
}

// ChunkID is the identifier of the chunk built from the given row.
func ChunkID(row int) string { return "chunk_" + strconv.Itoa(row) }

// Build renders one record.
func Build(row int, rec domain.Record) domain.Chunk {
	year, month, _ := strings.Cut(rec.Competency, "-")

	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	line("Funcionário", rec.Name+" (ID: "+rec.EmployeeID+")")
	line("Competência", MonthName(month)+" de "+year+" ("+rec.Competency+")")
	line("Salário Base", FormatBRL(rec.BaseSalary))
	line("Bônus", FormatBRL(rec.Bonus))
	line("Benefícios (VT/VR)", FormatBRL(rec.Benefits))
	line("Outros Proventos", FormatBRL(rec.OtherEarnings))
	line("Desconto INSS", FormatBRL(rec.DeductionINSS))
	line("Desconto IRRF", FormatBRL(rec.DeductionIRRF))
	line("Outros Descontos", FormatBRL(rec.OtherDeductions))
	line("Pagamento Líquido", FormatBRL(rec.NetPay))
	b.WriteString("Data de Pagamento: ")
	b.WriteString(FormatDate(rec.PaymentDate))

	return domain.Chunk{
		ID:     ChunkID(row),
		Text:   b.String(),
		Record: rec,
		Row:    row,
	}
}

// BuildAll renders every record in dataset order; chunk i comes from record i.
func BuildAll(records []domain.Record) []domain.Chunk {
	chunks := make([]domain.Chunk, len(records))
	for i, r := range records {
		chunks[i] = Build(i, r)
	}
	return chunks
}

// Texts returns the chunk texts in order.
func Texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// FormatBRL formats an amount as Brazilian reais: "R$ 1.234,56", "-R$ 1,00".
func FormatBRL(v float64) string {
	cents := int64(math.Round(math.Abs(v) * 100))
	sign := ""
	if v < 0 && cents > 0 {
		sign = "-"
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("R$ ")
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}

// FormatDate renders a payment date as DD/MM/YYYY, or NoDate for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return NoDate
	}
	return t.Format("02/01/2006")
}

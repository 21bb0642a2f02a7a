package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"payrollrag/internal/domain"
)

var (
	adjustmentYearRe    = regexp.MustCompile(`\b(20\d{2})\b`)
	adjustmentPercentRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)
)

// Adjustment is a salary readjustment request such as
// "reajuste os salários de 2027 em 8%".
type Adjustment struct {
	Year   int
	Factor float64
}

// ParseAdjustment extracts the target year and the percentage of a
// readjustment command. 8% becomes a factor of 1.08.
func ParseAdjustment(text string) (Adjustment, error) {
	ym := adjustmentYearRe.FindStringSubmatch(text)
	if ym == nil {
		return Adjustment{}, errors.New("year not found in command")
	}
	pm := adjustmentPercentRe.FindStringSubmatch(text)
	if pm == nil {
		return Adjustment{}, errors.New("percentage not found in command")
	}
	year, _ := strconv.Atoi(ym[1])
	pct, err := strconv.ParseFloat(strings.Replace(pm[1], ",", ".", 1), 64)
	if err != nil {
		return Adjustment{}, fmt.Errorf("invalid percentage %q: %w", pm[1], err)
	}
	return Adjustment{Year: year, Factor: 1 + pct/100}, nil
}

// ProjectYear appends to records a copy of every base-year row moved to the
// target year, with base salary, bonus, benefits, INSS and IRRF scaled by
// factor. Other earnings and other deductions are carried unchanged and net
// pay is recomputed. baseYear 0 means target-1.
func ProjectYear(records []domain.Record, target int, factor float64, baseYear int) ([]domain.Record, error) {
	if baseYear == 0 {
		baseYear = target - 1
	}
	basePrefix := strconv.Itoa(baseYear) + "-"
	targetPrefix := strconv.Itoa(target) + "-"

	var projected []domain.Record
	for _, r := range records {
		if strings.HasPrefix(r.Competency, targetPrefix) {
			return nil, fmt.Errorf("data for year %d already exists", target)
		}
		if !strings.HasPrefix(r.Competency, basePrefix) {
			continue
		}
		month := strings.TrimPrefix(r.Competency, basePrefix)
		m, _ := strconv.Atoi(month)
		p := domain.Record{
			EmployeeID:      r.EmployeeID,
			Name:            r.Name,
			Competency:      targetPrefix + month,
			BaseSalary:      roundCents(r.BaseSalary * factor),
			Bonus:           roundCents(r.Bonus * factor),
			Benefits:        roundCents(r.Benefits * factor),
			OtherEarnings:   r.OtherEarnings,
			DeductionINSS:   roundCents(r.DeductionINSS * factor),
			DeductionIRRF:   roundCents(r.DeductionIRRF * factor),
			OtherDeductions: r.OtherDeductions,
			PaymentDate:     time.Date(target, time.Month(m), 28, 0, 0, 0, 0, time.UTC),
		}
		p.NetPay = roundCents(p.ExpectedNetPay())
		projected = append(projected, p)
	}
	if len(projected) == 0 {
		return nil, fmt.Errorf("no data for base year %d", baseYear)
	}
	out := make([]domain.Record, 0, len(records)+len(projected))
	out = append(out, records...)
	return append(out, projected...), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// WriteCSV writes records with the canonical header.
func WriteCSV(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	amount := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for _, r := range records {
		date := ""
		if r.HasPaymentDate() {
			date = r.PaymentDate.Format("2006-01-02")
		}
		row := []string{
			r.EmployeeID, r.Name, r.Competency,
			amount(r.BaseSalary), amount(r.Bonus), amount(r.Benefits), amount(r.OtherEarnings),
			amount(r.DeductionINSS), amount(r.DeductionIRRF), amount(r.OtherDeductions),
			amount(r.NetPay), date,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

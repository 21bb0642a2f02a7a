// Package dataset loads and validates the payroll CSV and answers
// structured questions over it without touching embeddings.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"payrollrag/internal/domain"
	"payrollrag/internal/logger"
)

// Required columns of the payroll CSV.
const (
	ColEmployeeID      = "employee_id"
	ColName            = "name"
	ColCompetency      = "competency"
	ColBaseSalary      = "base_salary"
	ColBonus           = "bonus"
	ColBenefits        = "benefits_vt_vr"
	ColOtherEarnings   = "other_earnings"
	ColDeductionINSS   = "deductions_inss"
	ColDeductionIRRF   = "deductions_irrf"
	ColOtherDeductions = "other_deductions"
	ColNetPay          = "net_pay"
	ColPaymentDate     = "payment_date"
)

// Columns is the fixed schema in canonical order.
var Columns = []string{
	ColEmployeeID, ColName, ColCompetency, ColBaseSalary, ColBonus, ColBenefits,
	ColOtherEarnings, ColDeductionINSS, ColDeductionIRRF, ColOtherDeductions,
	ColNetPay, ColPaymentDate,
}

var competencyRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Strict layouts are tried first, then the generic fallbacks.
var (
	strictDateLayouts   = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}
	fallbackDateLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"02/01/2006",
		"2006/01/02",
		"02-01-2006",
		"02.01.2006",
		"2 Jan 2006",
		"Jan 2, 2006",
	}
)

// Dataset is a validated snapshot of the payroll file.
type Dataset struct {
	Path    string
	Raw     []byte
	Hash    string
	Records []domain.Record
}

// Load reads and validates the payroll CSV at path.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.DataLoadError{Path: path, Err: err}
	}
	return Parse(raw, path)
}

// Parse validates raw CSV bytes. path is only used in errors and logs.
func Parse(raw []byte, path string) (*Dataset, error) {
	body := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(body))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.DataLoadError{Path: path, Err: errors.New("empty file")}
		}
		return nil, &domain.DataLoadError{Path: path, Err: err}
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &domain.SchemaError{Missing: missing}
	}

	var records []domain.Record
	badDates := 0
	for row := 1; ; row++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.DataLoadError{Path: path, Row: row, Err: err}
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		rec, dateOK, err := parseRecord(fields, index)
		if err != nil {
			return nil, &domain.DataLoadError{Path: path, Row: row, Err: err}
		}
		if !dateOK {
			badDates++
			logger.Warn("row %d: unparseable payment_date %q, keeping row without date", row, fields[index[ColPaymentDate]])
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, &domain.DataLoadError{Path: path, Err: errors.New("no data rows")}
	}
	if badDates > 0 {
		logger.Warn("some payment dates could not be parsed (%d of %d rows)", badDates, len(records))
	}
	logger.Info("dataset loaded: %d records from %s", len(records), path)

	return &Dataset{Path: path, Raw: raw, Hash: SHA256Hex(raw), Records: records}, nil
}

func parseRecord(fields []string, index map[string]int) (domain.Record, bool, error) {
	get := func(col string) string {
		i := index[col]
		if i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	rec := domain.Record{
		EmployeeID: get(ColEmployeeID),
		Name:       get(ColName),
		Competency: get(ColCompetency),
	}
	if !competencyRe.MatchString(rec.Competency) {
		return rec, false, fmt.Errorf("invalid competency %q, want YYYY-MM", rec.Competency)
	}
	money := []struct {
		col string
		dst *float64
	}{
		{ColBaseSalary, &rec.BaseSalary},
		{ColBonus, &rec.Bonus},
		{ColBenefits, &rec.Benefits},
		{ColOtherEarnings, &rec.OtherEarnings},
		{ColDeductionINSS, &rec.DeductionINSS},
		{ColDeductionIRRF, &rec.DeductionIRRF},
		{ColOtherDeductions, &rec.OtherDeductions},
		{ColNetPay, &rec.NetPay},
	}
	for _, m := range money {
		v, err := parseAmount(get(m.col))
		if err != nil {
			return rec, false, fmt.Errorf("column %s: %w", m.col, err)
		}
		*m.dst = v
	}
	d, ok := ParseDate(get(ColPaymentDate))
	rec.PaymentDate = d
	return rec, ok, nil
}

// parseAmount accepts "1234.56" and a comma decimal separator ("1234,56").
// Empty cells count as zero.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// ParseDate parses a payment date permissively. The zero time and false
// are returned when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range strictDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

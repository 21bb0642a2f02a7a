package dataset

import (
	"math"
	"sort"
	"strings"

	"payrollrag/internal/domain"
)

// Filter returns the records matching every predicate set in c, in dataset order.
func Filter(records []domain.Record, c domain.Criteria) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, c) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r satisfies every predicate set in c.
func Matches(r domain.Record, c domain.Criteria) bool {
	if name := strings.ToLower(strings.TrimSpace(c.Name)); name != "" && !strings.Contains(strings.ToLower(r.Name), name) {
		return false
	}
	if c.Competency != "" && r.Competency != c.Competency {
		return false
	}
	if c.EmployeeID != "" && r.EmployeeID != c.EmployeeID {
		return false
	}
	if c.MinNetPay != nil && r.NetPay < *c.MinNetPay {
		return false
	}
	if c.MaxNetPay != nil && r.NetPay > *c.MaxNetPay {
		return false
	}
	return true
}

// Stats summarises records. It is cheap enough to run on every call.
func Stats(records []domain.Record) domain.Statistics {
	st := domain.Statistics{TotalRecords: len(records), Competencies: []string{}}
	if len(records) == 0 {
		return st
	}
	employees := make(map[string]struct{})
	competencies := make(map[string]struct{})
	st.MinNetPay = math.Inf(1)
	st.MaxNetPay = math.Inf(-1)
	for _, r := range records {
		employees[r.EmployeeID] = struct{}{}
		competencies[r.Competency] = struct{}{}
		st.TotalPaid += r.NetPay
		st.MinNetPay = math.Min(st.MinNetPay, r.NetPay)
		st.MaxNetPay = math.Max(st.MaxNetPay, r.NetPay)
	}
	st.UniqueEmployees = len(employees)
	for c := range competencies {
		st.Competencies = append(st.Competencies, c)
	}
	sort.Strings(st.Competencies)
	st.AvgNetPay = st.TotalPaid / float64(len(records))
	return st
}

// EmployeeNames returns the distinct employee names in first-seen order.
func EmployeeNames(records []domain.Record) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range records {
		if _, ok := seen[r.Name]; ok || r.Name == "" {
			continue
		}
		seen[r.Name] = struct{}{}
		names = append(names, r.Name)
	}
	return names
}

package domain

import (
	"fmt"
	"math"
	"time"
)

// Record is one payroll line of the dataset.
type Record struct {
	EmployeeID      string    `json:"employee_id"`
	Name            string    `json:"name"`
	Competency      string    `json:"competency"`
	BaseSalary      float64   `json:"base_salary"`
	Bonus           float64   `json:"bonus"`
	Benefits        float64   `json:"benefits_vt_vr"`
	OtherEarnings   float64   `json:"other_earnings"`
	DeductionINSS   float64   `json:"deductions_inss"`
	DeductionIRRF   float64   `json:"deductions_irrf"`
	OtherDeductions float64   `json:"other_deductions"`
	NetPay          float64   `json:"net_pay"`
	PaymentDate     time.Time `json:"payment_date"`
}

// HasPaymentDate reports whether the payment date was parsed successfully.
func (r Record) HasPaymentDate() bool { return !r.PaymentDate.IsZero() }

// ExpectedNetPay is the signed sum of earnings minus deductions.
func (r Record) ExpectedNetPay() float64 {
	return r.BaseSalary + r.Bonus + r.Benefits + r.OtherEarnings -
		r.DeductionINSS - r.DeductionIRRF - r.OtherDeductions
}

// NetPayConsistent reports whether NetPay matches ExpectedNetPay within tol.
func (r Record) NetPayConsistent(tol float64) bool {
	return math.Abs(r.NetPay-r.ExpectedNetPay()) <= tol
}

// Chunk is one record rendered as descriptive text, the unit of embedding and retrieval.
type Chunk struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Record Record `json:"record"`
	Row    int    `json:"row_index"`
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// SearchStatus tells apart the reasons a search can come back empty.
type SearchStatus int

const (
	StatusOK SearchStatus = iota
	StatusEmptyQuery
	StatusRejected
	StatusDegraded
)

func (s SearchStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmptyQuery:
		return "empty_query"
	case StatusRejected:
		return "rejected"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s SearchStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a status name written by MarshalText.
func (s *SearchStatus) UnmarshalText(b []byte) error {
	for _, st := range []SearchStatus{StatusOK, StatusEmptyQuery, StatusRejected, StatusDegraded} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown search status %q", b)
}

// SearchResponse is the outcome of a single query. Results is empty unless
// Status is StatusOK; Err is set only for StatusDegraded.
type SearchResponse struct {
	Query   string         `json:"query"`
	Status  SearchStatus   `json:"status"`
	Results []SearchResult `json:"results"`
	Err     error          `json:"-"`
}

// Degraded reports whether the search subsystem failed while serving the query.
func (r SearchResponse) Degraded() bool { return r.Status == StatusDegraded }

// Criteria holds the optional predicates of a structured lookup.
// Empty strings and nil pointers impose no constraint.
type Criteria struct {
	Name       string   `json:"name,omitempty"`
	Competency string   `json:"competency,omitempty"`
	EmployeeID string   `json:"employee_id,omitempty"`
	MinNetPay  *float64 `json:"min_net_pay,omitempty"`
	MaxNetPay  *float64 `json:"max_net_pay,omitempty"`
}

// IsZero reports whether no predicate is set.
func (c Criteria) IsZero() bool {
	return c.Name == "" && c.Competency == "" && c.EmployeeID == "" && c.MinNetPay == nil && c.MaxNetPay == nil
}

// Statistics summarises the whole dataset.
type Statistics struct {
	TotalRecords    int      `json:"total_records"`
	UniqueEmployees int      `json:"unique_employees"`
	Competencies    []string `json:"competencies"`
	AvgNetPay       float64  `json:"avg_net_pay"`
	MaxNetPay       float64  `json:"max_net_pay"`
	MinNetPay       float64  `json:"min_net_pay"`
	TotalPaid       float64  `json:"total_paid"`
}

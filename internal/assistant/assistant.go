package assistant

import (
	"context"

	"payrollrag/internal/chunker"
	"payrollrag/internal/dataset"
	"payrollrag/internal/domain"
	"payrollrag/internal/logger"
	"payrollrag/internal/query"
)

// Backend is the part of the engine the assistant needs.
type Backend interface {
	Search(ctx context.Context, q string, topK int) domain.SearchResponse
	Statistics() domain.Statistics
	Records() []domain.Record
	Lexicon() *query.Lexicon
}

// How a payroll answer was found.
const (
	LookupExact    = "exact"
	LookupSemantic = "semantic"
	LookupFallback = "fallback"
)

// Answer is the outcome of one Ask.
type Answer struct {
	Text       string                 `json:"text"`
	Intent     Intent                 `json:"intent"`
	Confidence float64                `json:"confidence"`
	Lookup     string                 `json:"lookup,omitempty"`
	Search     *domain.SearchResponse `json:"search,omitempty"`
	Stats      *domain.Statistics     `json:"stats,omitempty"`
}

// Assistant routes messages of one conversation.
type Assistant struct {
	backend    Backend
	conv       *Conversation
	classifier *Classifier
}

// New creates an assistant with a fresh conversation.
func New(backend Backend, maxHistory int) *Assistant {
	return &Assistant{
		backend:    backend,
		conv:       NewConversation(maxHistory),
		classifier: NewClassifier(backend.Lexicon().Names()),
	}
}

// Conversation returns the history of this assistant.
func (a *Assistant) Conversation() *Conversation { return a.conv }

// Ask records msg, answers it and records the answer.
//
// A payroll question naming both an employee and a competency is answered
// by exact lookup. Anything else goes through semantic search; when search
// is degraded the records matching whatever criteria the message names are
// shown instead.
func (a *Assistant) Ask(ctx context.Context, msg string) Answer {
	a.conv.Add(RoleUser, msg, nil)
	intent, confidence := a.classifier.Classify(msg)
	logger.Debug("intent %s (confidence=%.2f)", intent, confidence)

	ans := Answer{Intent: intent, Confidence: confidence}
	meta := map[string]any{"intent": string(intent), "confidence": confidence}
	switch intent {
	case IntentPayroll:
		resp := a.payroll(ctx, msg, &ans)
		ans.Search = &resp
		meta["lookup"] = ans.Lookup
		meta["status"] = resp.Status.String()
		meta["context_size"] = len(resp.Results)
		if len(resp.Results) > 0 {
			sources := make([]int, len(resp.Results))
			for i, r := range resp.Results {
				sources[i] = r.Chunk.Row
			}
			meta["sources"] = sources
		}
	case IntentStats:
		st := a.backend.Statistics()
		ans.Stats = &st
		ans.Text = FormatStatistics(st)
		meta["stats"] = st
	default:
		ans.Text = Reply(msg)
		meta["context_size"] = 0
	}
	a.conv.Add(RoleAssistant, ans.Text, meta)
	return ans
}

func (a *Assistant) payroll(ctx context.Context, msg string, ans *Answer) domain.SearchResponse {
	var c domain.Criteria
	if _, ok := query.Sanitize(msg); ok {
		c = ExtractFilters(msg, a.backend.Lexicon(), a.backend.Statistics().Competencies)
	}
	if (c.Name != "" || c.EmployeeID != "") && c.Competency != "" {
		if resp := a.lookup(msg, c); len(resp.Results) > 0 {
			logger.Debug("exact lookup %+v -> %d records", c, len(resp.Results))
			ans.Lookup = LookupExact
			ans.Text = Compose(msg, resp)
			return resp
		}
	}

	resp := a.backend.Search(ctx, msg, maxAnswerRecords)
	ans.Lookup = LookupSemantic
	ans.Text = Compose(msg, resp)
	if resp.Status == domain.StatusDegraded && !c.IsZero() {
		if fb := a.lookup(msg, c); len(fb.Results) > 0 {
			logger.Warn("search degraded, answering from structured lookup %+v", c)
			ans.Lookup = LookupFallback
			ans.Text = fallbackNote + "\n\n" + Compose(msg, fb)
			fb.Err = resp.Err
			return fb
		}
	}
	return resp
}

// lookup renders the records matching c as full-score results, keeping
// their dataset rows.
func (a *Assistant) lookup(msg string, c domain.Criteria) domain.SearchResponse {
	resp := domain.SearchResponse{Query: msg, Status: domain.StatusOK, Results: []domain.SearchResult{}}
	for row, r := range a.backend.Records() {
		if dataset.Matches(r, c) {
			resp.Results = append(resp.Results, domain.SearchResult{Chunk: chunker.Build(row, r), Score: 1})
		}
	}
	return resp
}

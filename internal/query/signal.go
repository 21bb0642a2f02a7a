package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"payrollrag/internal/textnorm"
)

// SignalKind tags the outcome of an extraction.
type SignalKind int

const (
	SignalNone SignalKind = iota
	SignalMonth
	SignalEmployee
)

// Signal is one extracted heuristic. For SignalMonth, Value is either a
// two-digit month ("03") or a full competency ("2025-03"). For
// SignalEmployee it is the canonical employee name.
type Signal struct {
	Kind  SignalKind
	Value string
}

// None is the no-match outcome.
var None = Signal{Kind: SignalNone}

// Found reports whether the extraction matched.
func (s Signal) Found() bool { return s.Kind != SignalNone }

func (s Signal) String() string {
	switch s.Kind {
	case SignalMonth:
		return "month(" + s.Value + ")"
	case SignalEmployee:
		return "employee(" + s.Value + ")"
	default:
		return "none"
	}
}

var (
	isoMonthRe     = regexp.MustCompile(`\b(\d{4})-(0[1-9]|1[0-2])\b`)
	slashMonthRe   = regexp.MustCompile(`\b(0?[1-9]|1[0-2])/(\d{4})\b`)
	ordinalMonthRe = regexp.MustCompile(`\bmes\s+(0?[1-9]|1[0-2])\b`)
	monthNameRe    = regexp.MustCompile(`\b(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\b`)
	monthAbbrevRe  = regexp.MustCompile(`\b(jan|fev|mar|abr|mai|jun|jul|ago|set|out|nov|dez)\b`)
	bareMonthRe    = regexp.MustCompile(`\b(0[1-9]|1[0-2])\b`)
)

// "dez" followed by one of these is the number ten, not December.
var quantityAfterRe = regexp.MustCompile(`^\s*(%|por\s*cento\b|mil\b|reais\b|vezes\b)`)

var monthNumbers = map[string]int{
	"janeiro": 1, "fevereiro": 2, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
	"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
	"jan": 1, "fev": 2, "mar": 3, "abr": 4, "mai": 5, "jun": 6,
	"jul": 7, "ago": 8, "set": 9, "out": 10, "nov": 11, "dez": 12,
}

// ExtractMonth finds a target month in q. Explicit competencies win over
// "MM/YYYY", which wins over "mês N", month names, abbreviations and finally
// a bare two-digit month ("03").
func ExtractMonth(q string) Signal {
	f := textnorm.Fold(q)
	if m := isoMonthRe.FindStringSubmatch(f); m != nil {
		return Signal{Kind: SignalMonth, Value: m[1] + "-" + m[2]}
	}
	if m := slashMonthRe.FindStringSubmatch(f); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Signal{Kind: SignalMonth, Value: fmt.Sprintf("%s-%02d", m[2], n)}
	}
	if m := ordinalMonthRe.FindStringSubmatch(f); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Signal{Kind: SignalMonth, Value: fmt.Sprintf("%02d", n)}
	}
	if m := monthNameRe.FindStringSubmatch(f); m != nil {
		return Signal{Kind: SignalMonth, Value: fmt.Sprintf("%02d", monthNumbers[m[1]])}
	}
	for _, m := range monthAbbrevRe.FindAllStringSubmatchIndex(f, -1) {
		abbrev := f[m[2]:m[3]]
		if abbrev == "dez" && quantityAfterRe.MatchString(f[m[1]:]) {
			continue
		}
		return Signal{Kind: SignalMonth, Value: fmt.Sprintf("%02d", monthNumbers[abbrev])}
	}
	for _, m := range bareMonthRe.FindAllStringSubmatchIndex(f, -1) {
		if partOfAmount(f, m[0], m[1]) {
			continue
		}
		return Signal{Kind: SignalMonth, Value: f[m[2]:m[3]]}
	}
	return None
}

// partOfAmount reports whether the digits at f[start:end] belong to a money
// value, a percentage or a time rather than standing alone.
func partOfAmount(f string, start, end int) bool {
	if start > 0 && strings.ContainsRune(".,:$", rune(f[start-1])) {
		return true
	}
	if end < len(f) {
		if strings.ContainsRune(",:%", rune(f[end])) {
			return true
		}
		if f[end] == '.' && end+1 < len(f) && f[end+1] >= '0' && f[end+1] <= '9' {
			return true
		}
	}
	return strings.HasSuffix(strings.TrimRight(f[:start], " "), "r$")
}

// MatchesCompetency reports whether a month signal selects competency
// ("YYYY-MM"). A bare month matches any year.
func (s Signal) MatchesCompetency(competency string) bool {
	if s.Kind != SignalMonth || s.Value == "" {
		return false
	}
	if len(s.Value) == 2 {
		return strings.HasSuffix(competency, "-"+s.Value)
	}
	return strings.Contains(competency, s.Value)
}

// MatchesName reports whether an employee signal selects the given name,
// ignoring case and accents.
func (s Signal) MatchesName(name string) bool {
	if s.Kind != SignalEmployee || s.Value == "" {
		return false
	}
	return textnorm.ContainsFold(name, s.Value)
}

type alias struct {
	re        *regexp.Regexp
	length    int
	canonical string
}

// Lexicon maps name spellings found in queries to canonical employee names.
type Lexicon struct {
	aliases []alias
	names   []string
}

// NewLexicon builds a lexicon from the dataset employee names. Each full
// name, and each first name or surname that belongs to a single employee, is
// an alias. extra adds configured spellings: canonical name → aliases.
func NewLexicon(names []string, extra map[string][]string) *Lexicon {
	owners := make(map[string]map[string]struct{})
	add := func(spelling, canonical string) {
		key := strings.TrimSpace(textnorm.Fold(spelling))
		if key == "" {
			return
		}
		if owners[key] == nil {
			owners[key] = make(map[string]struct{})
		}
		owners[key][canonical] = struct{}{}
	}

	l := &Lexicon{}
	seen := make(map[string]struct{})
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		l.names = append(l.names, n)
		add(n, n)
		parts := strings.Fields(n)
		if len(parts) > 1 {
			add(parts[0], n)
			add(parts[len(parts)-1], n)
		}
	}
	for canonical, spellings := range extra {
		if _, ok := seen[canonical]; !ok {
			seen[canonical] = struct{}{}
			l.names = append(l.names, canonical)
		}
		add(canonical, canonical)
		for _, s := range spellings {
			add(s, canonical)
		}
	}

	for key, set := range owners {
		if len(set) != 1 {
			continue
		}
		var canonical string
		for c := range set {
			canonical = c
		}
		l.aliases = append(l.aliases, alias{
			re:        regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\b`),
			length:    len(key),
			canonical: canonical,
		})
	}
	// Longest spelling first so "ana souza" beats "ana".
	sort.Slice(l.aliases, func(i, j int) bool {
		if l.aliases[i].length != l.aliases[j].length {
			return l.aliases[i].length > l.aliases[j].length
		}
		return l.aliases[i].re.String() < l.aliases[j].re.String()
	})
	return l
}

// Names returns the canonical names known to the lexicon.
func (l *Lexicon) Names() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.names...)
}

// ExtractEmployee finds a known employee in q.
func (l *Lexicon) ExtractEmployee(q string) Signal {
	if l == nil {
		return None
	}
	f := textnorm.Fold(q)
	for _, a := range l.aliases {
		if a.re.MatchString(f) {
			return Signal{Kind: SignalEmployee, Value: a.canonical}
		}
	}
	return None
}

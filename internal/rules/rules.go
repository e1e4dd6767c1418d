// Package rules implements the ordered rule set (C4): construction,
// reordering with dense order renumbering, and compilation of literal and
// pattern rules into directly-applicable forms.
package rules

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
)

// maxPatternSize caps the raw pattern length at 1 MiB, checked before
// compilation. The size of the compiled program is not capped: Go's regexp
// package exposes no pattern/DFA size knob.
const maxPatternSize = 1 << 20

// Set is an ordered collection of rules. Order values are kept dense
// (0..n-1) after every mutation.
type Set struct {
	rules []domain.Rule
}

// NewSet returns an empty rule set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a rule, assigning it the next dense order value and a
// generated ID if one was not supplied.
func (s *Set) Add(r domain.Rule) domain.Rule {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Order = len(s.rules)
	s.rules = append(s.rules, r)
	return r
}

// Rules returns the rules in order.
func (s *Set) Rules() []domain.Rule {
	out := make([]domain.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Reorder moves the rule at index from to index to, renumbering Order
// densely afterward. Out-of-bounds indices are a silent no-op, per spec.
func (s *Set) Reorder(from, to int) {
	n := len(s.rules)
	if from < 0 || from >= n || to < 0 || to >= n {
		return
	}
	r := s.rules[from]
	s.rules = append(s.rules[:from], s.rules[from+1:]...)
	s.rules = append(s.rules[:to], append([]domain.Rule{r}, s.rules[to:]...)...)
	for i := range s.rules {
		s.rules[i].Order = i
	}
}

// CompiledKind discriminates a compiled rule's application strategy.
type CompiledKind int

const (
	CompiledLiteral CompiledKind = iota
	CompiledLiteralCI
	CompiledPattern
)

// Compiled is a rule in directly-applicable form.
type Compiled struct {
	Rule domain.Rule
	Kind CompiledKind
	CI   *regexp.Regexp // CompiledLiteralCI
	Re   *regexp.Regexp // CompiledPattern
}

// InvalidRegexError reports a rule whose pattern failed to compile.
type InvalidRegexError struct {
	RuleID string
	Cause  error
}

func (e *InvalidRegexError) Error() string {
	return "invalid regex in rule " + e.RuleID + ": " + e.Cause.Error()
}

func (e *InvalidRegexError) Unwrap() error { return e.Cause }

// Compile compiles every enabled rule in the set, in order. Disabled rules
// are skipped. Compilation failure for any rule aborts construction with an
// InvalidRegexError wrapped via gitlab.com/tozd/go/errors.
func Compile(s *Set) ([]Compiled, errors.E) {
	var out []Compiled
	for _, r := range s.rules {
		if !r.Enabled {
			continue
		}
		switch r.Kind {
		case domain.RuleKindLiteral:
			if r.CaseSensitive {
				out = append(out, Compiled{Rule: r, Kind: CompiledLiteral})
				continue
			}
			re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(r.Find))
			if err != nil {
				errE := errors.WithStack(&InvalidRegexError{RuleID: r.ID, Cause: err})
				errors.Details(errE)["rule_id"] = r.ID
				return nil, errE
			}
			out = append(out, Compiled{Rule: r, Kind: CompiledLiteralCI, CI: re})
		case domain.RuleKindPattern:
			if len(r.Pattern) > maxPatternSize {
				errE := errors.Errorf("pattern exceeds size cap for rule %s", r.ID)
				errors.Details(errE)["rule_id"] = r.ID
				return nil, errE
			}
			pattern := r.Pattern
			if r.CaseInsensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				errE := errors.WithStack(&InvalidRegexError{RuleID: r.ID, Cause: err})
				errors.Details(errE)["rule_id"] = r.ID
				return nil, errE
			}
			out = append(out, Compiled{Rule: r, Kind: CompiledPattern, Re: re})
		}
	}
	return out, nil
}

// Apply runs c against t, returning the rewritten text and whether it
// changed.
func Apply(c Compiled, t string) (string, bool) {
	var next string
	switch c.Kind {
	case CompiledLiteral:
		next = strings.ReplaceAll(t, c.Rule.Find, c.Rule.Replace)
	case CompiledLiteralCI:
		// Literal replacement text must be inserted verbatim, not expanded
		// as a regexp.Expand template (a literal replace containing "$",
		// e.g. "$100", must not be treated as a capture-group reference).
		next = c.CI.ReplaceAllLiteralString(t, c.Rule.Replace)
	case CompiledPattern:
		next = c.Re.ReplaceAllString(t, c.Rule.Replacement)
	}
	return next, next != t
}

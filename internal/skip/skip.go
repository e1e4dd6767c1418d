// Package skip implements the page-level skip engine (C7): a conjunction of
// predicates evaluated in declaration order, returning at the first one that
// votes to skip.
package skip

import (
	"regexp"

	mapset "github.com/deckarep/golang-set/v2"
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
)

// Result is the outcome of evaluating a page against an Engine.
type Result struct {
	Skip   bool
	Reason string
}

func process() Result { return Result{} }

func skip(reason string) Result { return Result{Skip: true, Reason: reason} }

// Predicate votes on whether a page should be skipped.
type Predicate interface {
	Evaluate(page domain.Page) Result
}

// Engine holds an ordered list of predicates, evaluated as a conjunction.
type Engine struct {
	predicates []Predicate
}

// New builds an Engine from the given predicates, evaluated in order.
func New(predicates ...Predicate) *Engine {
	return &Engine{predicates: predicates}
}

// Evaluate runs every predicate in declaration order, returning at the first
// one that votes to skip, else Process.
func (e *Engine) Evaluate(page domain.Page) Result {
	for _, p := range e.predicates {
		if r := p.Evaluate(page); r.Skip {
			return r
		}
	}
	return process()
}

// Namespace skips pages whose namespace is not in Allowed.
type Namespace struct {
	Allowed mapset.Set[int]
}

func NewNamespace(allowed []int) Namespace {
	return Namespace{Allowed: mapset.NewThreadUnsafeSet(allowed...)}
}

func (n Namespace) Evaluate(page domain.Page) Result {
	if !n.Allowed.Contains(page.Title.Namespace) {
		return skip("namespace not allowed")
	}
	return process()
}

// Regex skips (or requires) a page markup match against a compiled
// pattern, inverted per Invert.
type Regex struct {
	re     *regexp.Regexp
	invert bool
}

// NewRegex compiles pattern at construction time; an invalid pattern is a
// ConstructionError.
func NewRegex(pattern string, invert bool) (Regex, errors.E) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		errE := errors.WithStack(err)
		errors.Details(errE)["pattern"] = pattern
		return Regex{}, errE
	}
	return Regex{re: re, invert: invert}, nil
}

func (r Regex) Evaluate(page domain.Page) Result {
	matched := r.re.MatchString(page.Markup)
	if r.invert {
		if matched {
			return skip("regex matched (inverted)")
		}
		return process()
	}
	if !matched {
		return skip("regex did not match")
	}
	return process()
}

// PageSize skips pages outside a [Min, Max] byte-size window. Each bound
// applies only when its HasMin/HasMax flag is set.
type PageSize struct {
	Min, Max int64
	HasMin   bool
	HasMax   bool
}

func (p PageSize) Evaluate(page domain.Page) Result {
	if p.HasMin && page.SizeBytes < p.Min {
		return skip("page too small")
	}
	if p.HasMax && page.SizeBytes > p.Max {
		return skip("page too large")
	}
	return process()
}

// Protection skips pages whose edit-protection level exceeds MaxLevel.
type Protection struct {
	MaxLevel domain.ProtectionLevel
}

func (p Protection) Evaluate(page domain.Page) Result {
	if page.Protection > p.MaxLevel {
		return skip("protection level exceeds policy")
	}
	return process()
}

// IsRedirect skips redirect pages when enabled.
type IsRedirect struct {
	Enabled bool
}

func (r IsRedirect) Evaluate(page domain.Page) Result {
	if r.Enabled && page.IsRedirect {
		return skip("page is a redirect")
	}
	return process()
}

// IsDisambig skips disambiguation pages when enabled.
type IsDisambig struct {
	Enabled bool
}

func (d IsDisambig) Evaluate(page domain.Page) Result {
	if d.Enabled && page.Properties.IsDisambig {
		return skip("page is a disambiguation page")
	}
	return process()
}

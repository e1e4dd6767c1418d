// Package review implements the per-session review state machine (C10): a
// single-threaded driver that turns events into state transitions and
// emits side effects for a host adapter to execute. The core never
// performs I/O itself.
package review

import (
	"time"

	"gitlab.com/wikibot/awb/domain"
)

// StateKind discriminates the State union.
type StateKind int

const (
	Idle StateKind = iota
	LoadingList
	Fetching
	Applying
	AwaitingDecision
	Saving
	Paused
	Completed
	ErrorState
)

// State is the machine's current state, carrying whichever payload its
// kind requires.
type State struct {
	Kind  StateKind
	Index int
	Plan  domain.EditPlan
	Stats domain.Stats
	Err   error
}

// EventKind discriminates the Event union.
type EventKind int

const (
	EvStart EventKind = iota
	EvListLoaded
	EvPageFetched
	EvRulesApplied
	EvUserDecision
	EvSaveComplete
	EvSaveFailed
	EvPageError
	EvPause
	EvResume
	EvStop
)

// Decision is the user's (or policy's) choice at AwaitingDecision.
type Decision int

const (
	DecisionSave Decision = iota
	DecisionSkip
	DecisionPause
	DecisionOpenInBrowser
	DecisionManualEdit
)

// Event drives a transition, carrying whichever payload its kind requires.
type Event struct {
	Kind       EventKind
	Titles     []string
	Page       domain.Page
	Plan       domain.EditPlan
	Decision   Decision
	ManualText string
	SaveResult domain.SaveResult
	Err        error
}

// EffectKind discriminates the Effect union.
type EffectKind int

const (
	EffFetchPage EffectKind = iota
	EffApplyRules
	EffPresentForReview
	EffExecuteEdit
	EffPersistSession
	EffEmitWarning
	EffShowComplete
)

// Effect is a side effect the host adapter must perform; the core never
// performs it itself.
type Effect struct {
	Kind    EffectKind
	Title   string
	Page    domain.Page
	Plan    domain.EditPlan
	Summary string
	Text    string
	Warning domain.Warning
	Stats   domain.Stats
}

// Machine drives one review session. It is not safe for concurrent use by
// more than one goroutine, matching the single-threaded contract of §5.
type Machine struct {
	state     State
	titles    []string
	stats     domain.Stats
	startTime time.Time
}

// New returns a Machine in the Idle state.
func New() *Machine {
	return &Machine{state: State{Kind: Idle}}
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Stats returns the running statistics.
func (m *Machine) Stats() domain.Stats {
	s := m.stats
	if !m.startTime.IsZero() {
		s.ElapsedSecs = time.Since(m.startTime).Seconds()
	}
	return s
}

// Dispatch applies ev to the machine, returning the effects the host
// adapter must now perform. Transitions not listed in spec.md §4.9 are
// ignored (return nil effects) rather than erroring.
func (m *Machine) Dispatch(ev Event) []Effect {
	switch m.state.Kind {
	case Idle:
		if ev.Kind == EvStart {
			m.startTime = time.Now()
			m.state = State{Kind: LoadingList}
			return nil
		}
	case LoadingList:
		if ev.Kind == EvListLoaded {
			m.titles = ev.Titles
			m.stats.Total = len(ev.Titles)
			if len(ev.Titles) == 0 {
				m.state = State{Kind: Completed, Stats: m.Stats()}
				return []Effect{{Kind: EffShowComplete, Stats: m.Stats()}}
			}
			m.state = State{Kind: Fetching, Index: 0}
			return []Effect{{Kind: EffFetchPage, Title: ev.Titles[0]}}
		}
	case Fetching:
		switch ev.Kind {
		case EvPageFetched:
			m.state = State{Kind: Applying, Index: m.state.Index}
			return []Effect{{Kind: EffApplyRules, Page: ev.Page}}
		case EvPageError:
			m.stats.Errored++
			m.state = State{Kind: ErrorState, Index: m.state.Index, Err: ev.Err}
			return nil
		}
	case Applying:
		switch ev.Kind {
		case EvRulesApplied:
			m.state = State{Kind: AwaitingDecision, Index: m.state.Index, Plan: ev.Plan}
			return []Effect{{Kind: EffPresentForReview, Plan: ev.Plan}}
		case EvPageError:
			m.stats.Errored++
			m.state = State{Kind: ErrorState, Index: m.state.Index, Err: ev.Err}
			return nil
		}
	case AwaitingDecision:
		if ev.Kind == EvUserDecision {
			plan := m.state.Plan
			switch ev.Decision {
			case DecisionSave:
				m.state = State{Kind: Saving, Index: m.state.Index, Plan: plan}
				return []Effect{{Kind: EffExecuteEdit, Title: titleString(plan), Page: plan.Page, Plan: plan, Text: plan.NewMarkup, Summary: plan.Summary}}
			case DecisionSkip, DecisionManualEdit:
				m.stats.Skipped++
				return m.advance()
			case DecisionPause:
				m.state = State{Kind: Paused, Index: m.state.Index}
				return []Effect{{Kind: EffPersistSession}}
			case DecisionOpenInBrowser:
				return nil
			}
		}
	case Saving:
		switch ev.Kind {
		case EvSaveComplete:
			m.stats.Saved++
			return m.advance()
		case EvSaveFailed:
			m.stats.Errored++
			m.state = State{Kind: ErrorState, Index: m.state.Index, Err: ev.Err}
			return nil
		}
	case ErrorState, Paused:
		if ev.Kind == EvResume {
			return m.advance()
		}
	}

	if ev.Kind == EvStop {
		m.state = State{Kind: Completed, Stats: m.Stats()}
		return []Effect{{Kind: EffPersistSession}, {Kind: EffShowComplete, Stats: m.Stats()}}
	}
	return nil
}

// advance moves to the next title, or to Completed if titles are
// exhausted.
func (m *Machine) advance() []Effect {
	next := m.state.Index + 1
	if next < len(m.titles) {
		m.state = State{Kind: Fetching, Index: next}
		return []Effect{{Kind: EffFetchPage, Title: m.titles[next]}}
	}
	m.state = State{Kind: Completed, Stats: m.Stats()}
	return []Effect{{Kind: EffPersistSession}, {Kind: EffShowComplete, Stats: m.Stats()}}
}

func titleString(plan domain.EditPlan) string {
	return plan.Page.Title.Name
}

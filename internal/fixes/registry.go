// Package fixes implements the general-fix registry (C5): a small
// interface for typed, tiered, classified idempotent page rewriters, and
// the nine built-in modules described by the specification.
package fixes

import (
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
)

// Module is the interface every general fix implements. Apply must be
// idempotent: Apply(Apply(t, c), c) == Apply(t, c).
type Module interface {
	ID() string
	DisplayName() string
	Category() string
	Description() string
	Classification() domain.FixClassification
	MinTier() int
	Apply(text string, ctx domain.FixContext) string
}

// Registry holds an ordered list of fix modules.
type Registry struct {
	modules []Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewRegistryWithDefaults returns a registry pre-populated with the nine
// built-in fix modules, in the order the specification lists them.
func NewRegistryWithDefaults() *Registry {
	r := NewRegistry()
	r.Register(
		&WhitespaceCleanup{},
		&HeadingSpacing{},
		&TrailingWhitespace{},
		&CategorySorting{},
		&HTMLToWikitext{},
		&DuplicateWikilinkRemoval{},
		&DefaultSortFix{},
		&CitationFormatting{},
		&UnicodeNormalization{},
	)
	return r
}

// Register appends one or more modules.
func (r *Registry) Register(modules ...Module) {
	r.modules = append(r.modules, modules...)
}

// KnownIDs returns the set of registered module IDs.
func (r *Registry) KnownIDs() map[string]bool {
	out := make(map[string]bool, len(r.modules))
	for _, m := range r.modules {
		out[m.ID()] = true
	}
	return out
}

// Module returns the registered module with the given id, or nil.
func (r *Registry) Module(id string) Module {
	for _, m := range r.modules {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// ApplyResult is the outcome of ApplyAllWithConfig.
type ApplyResult struct {
	FinalText      string
	ChangedIDs     []string
	IsCosmeticOnly bool
}

// ApplyAllWithConfig runs every applicable module over text in registration
// order, honoring strictness tier gating and allow/deny lists, per spec.md
// §4.4:
//
//  1. Validate tier range and that every listed id is known.
//  2. Skip a module if its MinTier exceeds the configured tier.
//  3. Skip a module if its id is in the deny-list.
//  4. If the allow-list is non-empty, skip unless the id is in it.
//  5. Track which modules actually changed the text, and whether every
//     change so far has been Cosmetic.
func ApplyAllWithConfig(r *Registry, text string, ctx domain.FixContext, cfg domain.FixConfig) (ApplyResult, errors.E) {
	if cfg.StrictnessTier < 0 || cfg.StrictnessTier > 3 {
		return ApplyResult{}, errors.Errorf("strictness tier out of range: %d", cfg.StrictnessTier)
	}
	known := r.KnownIDs()
	for id := range cfg.EnabledFixes {
		if !known[id] {
			errE := errors.Errorf("unknown enabled fix id: %s", id)
			errors.Details(errE)["id"] = id
			return ApplyResult{}, errE
		}
	}
	for id := range cfg.DisabledFixes {
		if !known[id] {
			errE := errors.Errorf("unknown disabled fix id: %s", id)
			errors.Details(errE)["id"] = id
			return ApplyResult{}, errE
		}
	}

	current := text
	var changedIDs []string
	allCosmetic := true

	for _, m := range r.modules {
		if m.MinTier() > cfg.StrictnessTier {
			continue
		}
		if cfg.DisabledFixes[m.ID()] {
			continue
		}
		if len(cfg.EnabledFixes) > 0 && !cfg.EnabledFixes[m.ID()] {
			continue
		}
		next := m.Apply(current, ctx)
		if next != current {
			changedIDs = append(changedIDs, m.ID())
			if m.Classification() != domain.ClassificationCosmetic {
				allCosmetic = false
			}
			current = next
		}
	}

	return ApplyResult{
		FinalText:      current,
		ChangedIDs:     changedIDs,
		IsCosmeticOnly: len(changedIDs) > 0 && allCosmetic,
	}, nil
}

// ApplyOne runs a single module by id on text, ignoring registry tier/
// allow/deny gating. Used by the transform engine's dedicated post-unmask
// citation_formatting pass (see SPEC_FULL.md §4.5, §9).
func ApplyOne(r *Registry, id string, text string, ctx domain.FixContext) string {
	m := r.Module(id)
	if m == nil {
		return text
	}
	return m.Apply(text, ctx)
}

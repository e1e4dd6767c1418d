// Package transform composes the masking engine, rule set, and fix registry
// into the single-page rewrite pipeline (C6): mask, apply rules, apply
// general fixes, unmask, run the citation_formatting post-unmask pass, diff,
// and produce an EditPlan.
package transform

import (
	"strings"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/diffengine"
	"gitlab.com/wikibot/awb/internal/fixes"
	"gitlab.com/wikibot/awb/internal/plugin"
	"gitlab.com/wikibot/awb/internal/rules"
	"gitlab.com/wikibot/awb/internal/wikitext"
)

// DefaultSummary is the commit-summary tag prefixed to every edit this
// implementation makes.
const DefaultSummary = "Automated edit via awb-bot"

// LargeChangeThreshold is the byte-length-delta above which a LargeChange
// warning is attached to the plan.
const LargeChangeThreshold = 500

const citationFormattingID = "citation_formatting"

// Plan runs the full rewrite pipeline for one page against a compiled rule
// set and a fix registry/config, producing an EditPlan. Any plugins are run
// last, in registration order, against the unmasked result.
func Plan(page domain.Page, compiled []rules.Compiled, registry *fixes.Registry, fixCfg domain.FixConfig, plugins ...plugin.Plugin) (domain.EditPlan, error) {
	ctx := domain.FixContext{
		Title:      page.Title,
		Namespace:  page.Title.Namespace,
		IsRedirect: page.IsRedirect,
	}

	var rulesApplied []string
	var fragments []string
	var fixesApplied []string
	var applyErr error

	final := wikitext.WithMasking(page.Markup, func(masked string) string {
		current := masked
		for _, c := range compiled {
			next, changed := rules.Apply(c, current)
			if changed {
				rulesApplied = append(rulesApplied, c.Rule.ID)
				if c.Rule.CommentFragment != "" {
					fragments = append(fragments, c.Rule.CommentFragment)
				}
				current = next
			}
		}

		res, errE := fixes.ApplyAllWithConfig(registry, current, ctx, fixCfg)
		if errE != nil {
			applyErr = errE
			return masked
		}
		fixesApplied = res.ChangedIDs
		return res.FinalText
	})

	if applyErr != nil {
		return domain.EditPlan{}, applyErr
	}

	if fixCfg.StrictnessTier >= 2 && !fixCfg.DisabledFixes[citationFormattingID] &&
		(len(fixCfg.EnabledFixes) == 0 || fixCfg.EnabledFixes[citationFormattingID]) {
		rewritten := fixes.ApplyOne(registry, citationFormattingID, final, ctx)
		if rewritten != final {
			final = rewritten
			fixesApplied = append(fixesApplied, citationFormattingID)
		}
	}

	var warnings []domain.Warning
	if len(plugins) > 0 {
		final = plugin.Chain(final, plugins, func(err *plugin.Error) {
			warnings = append(warnings, domain.Warning{
				Kind:    domain.WarningPatternError,
				RuleID:  err.Plugin,
				Message: err.Error(),
			})
		})
	}

	diffOps := diffengine.Compute(page.Markup, final)

	if final == page.Markup {
		warnings = append(warnings, domain.Warning{Kind: domain.WarningNoChange})
	} else if delta := len(final) - len(page.Markup); abs(delta) > LargeChangeThreshold {
		added, removed := 0, 0
		if delta > 0 {
			added = delta
		} else {
			removed = -delta
		}
		warnings = append(warnings, domain.Warning{
			Kind:      domain.WarningLargeChange,
			Added:     added,
			Removed:   removed,
			Threshold: LargeChangeThreshold,
		})
	}

	summary := DefaultSummary
	if len(fragments) > 0 {
		summary = DefaultSummary + ": " + strings.Join(fragments, ", ")
	}

	isCosmeticOnly := isCosmeticOnlyChange(registry, fixesApplied) && len(rulesApplied) == 0

	return domain.EditPlan{
		Page:           page,
		NewMarkup:      final,
		RulesApplied:   rulesApplied,
		FixesApplied:   fixesApplied,
		DiffOps:        diffOps,
		Summary:        summary,
		Warnings:       warnings,
		IsCosmeticOnly: isCosmeticOnly,
	}, nil
}

func isCosmeticOnlyChange(registry *fixes.Registry, fixesApplied []string) bool {
	if len(fixesApplied) == 0 {
		return false
	}
	for _, id := range fixesApplied {
		m := registry.Module(id)
		if m == nil || m.Classification() != domain.ClassificationCosmetic {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

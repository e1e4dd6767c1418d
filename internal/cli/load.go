// Package cli wires the review pipeline into kong subcommands (C15),
// following peer-db's internal/cli/config.go pattern for configuration
// loading.
package cli

import (
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/fixes"
	"gitlab.com/wikibot/awb/internal/plugin"
	"gitlab.com/wikibot/awb/internal/rules"
	"gitlab.com/wikibot/awb/internal/skip"
)

// RuleSetYAML is the on-disk shape of a rule-set file.
type RuleSetYAML struct {
	Rules []RuleYAML `yaml:"rules"`
}

// RuleYAML is one rule as loaded from YAML.
//
//nolint:lll
type RuleYAML struct {
	ID              string `yaml:"id,omitempty"`
	Enabled         bool   `yaml:"enabled"`
	Kind            string `yaml:"kind"`
	Find            string `yaml:"find,omitempty"`
	Replace         string `yaml:"replace,omitempty"`
	CaseSensitive   bool   `yaml:"case_sensitive,omitempty"`
	Pattern         string `yaml:"pattern,omitempty"`
	Replacement     string `yaml:"replacement,omitempty"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty"`
	CommentFragment string `yaml:"comment_fragment,omitempty"`
}

// LoadRuleSet reads a YAML rule-set file and compiles it.
func LoadRuleSet(path string) ([]rules.Compiled, errors.E) {
	set := rules.NewSet()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		var doc RuleSetYAML
		decoder := yaml.NewDecoder(strings.NewReader(string(data)))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return nil, errors.WithStack(err)
		}
		for _, r := range doc.Rules {
			kind := domain.RuleKindLiteral
			if r.Kind == "pattern" {
				kind = domain.RuleKindPattern
			}
			set.Add(domain.Rule{
				ID:              r.ID,
				Enabled:         r.Enabled,
				Kind:            kind,
				Find:            r.Find,
				Replace:         r.Replace,
				CaseSensitive:   r.CaseSensitive,
				Pattern:         r.Pattern,
				Replacement:     r.Replacement,
				CaseInsensitive: r.CaseInsensitive,
				CommentFragment: r.CommentFragment,
			})
		}
	}
	return rules.Compile(set)
}

// FixConfigYAML is the on-disk shape of a fix-config file.
type FixConfigYAML struct {
	StrictnessTier    int      `yaml:"strictness_tier"`
	EnabledFixes      []string `yaml:"enabled_fixes,omitempty"`
	DisabledFixes     []string `yaml:"disabled_fixes,omitempty"`
	AllowCosmeticOnly bool     `yaml:"allow_cosmetic_only,omitempty"`
}

// LoadFixConfig reads a YAML fix-config file, defaulting to an all-enabled
// configuration at defaultTier when path is empty.
func LoadFixConfig(path string, defaultTier int) (domain.FixConfig, errors.E) {
	cfg := domain.FixConfig{StrictnessTier: defaultTier}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithStack(err)
	}
	var doc FixConfigYAML
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return cfg, errors.WithStack(err)
	}
	cfg.StrictnessTier = doc.StrictnessTier
	cfg.AllowCosmeticOnly = doc.AllowCosmeticOnly
	if len(doc.EnabledFixes) > 0 {
		cfg.EnabledFixes = toSet(doc.EnabledFixes)
	}
	if len(doc.DisabledFixes) > 0 {
		cfg.DisabledFixes = toSet(doc.DisabledFixes)
	}
	return cfg, nil
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// NewRegistry returns the standard registry of built-in fixes.
func NewRegistry() *fixes.Registry {
	return fixes.NewRegistryWithDefaults()
}

// BuildSkipEngine assembles a skip engine from the skip flags; an invalid
// regex is a construction error, surfaced before any page is processed.
func BuildSkipEngine(allowedNamespaces []int, regexPattern string, regexInvert bool, minSize, maxSize int64, maxProtection string, skipRedirects, skipDisambigs bool) (*skip.Engine, errors.E) {
	var predicates []skip.Predicate

	if len(allowedNamespaces) > 0 {
		predicates = append(predicates, skip.NewNamespace(allowedNamespaces))
	}
	if regexPattern != "" {
		r, errE := skip.NewRegex(regexPattern, regexInvert)
		if errE != nil {
			return nil, errE
		}
		predicates = append(predicates, r)
	}
	if minSize > 0 || maxSize > 0 {
		predicates = append(predicates, skip.PageSize{
			Min: minSize, HasMin: minSize > 0,
			Max: maxSize, HasMax: maxSize > 0,
		})
	}
	if maxProtection != "" {
		predicates = append(predicates, skip.Protection{MaxLevel: domain.ParseProtectionLevel(maxProtection)})
	}
	predicates = append(predicates,
		skip.IsRedirect{Enabled: skipRedirects},
		skip.IsDisambig{Enabled: skipDisambigs},
	)

	return skip.New(predicates...), nil
}

// LoadPlugins instantiates one plugin per path, dispatching on extension:
// ".lua" loads a LuaPlugin, ".wasm" loads a WasmPlugin. Every plugin shares
// cfg's resource bounds.
func LoadPlugins(paths []string, cfg plugin.Config) ([]plugin.Plugin, errors.E) {
	plugins := make([]plugin.Plugin, 0, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(path, ".lua")
		name = strings.TrimSuffix(name, ".wasm")

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		switch {
		case strings.HasSuffix(path, ".lua"):
			plugins = append(plugins, plugin.NewLuaPlugin(name, string(data), cfg))
		case strings.HasSuffix(path, ".wasm"):
			p, err := plugin.NewWasmPlugin(name, data, cfg)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			plugins = append(plugins, p)
		default:
			errE := errors.Errorf("unrecognized plugin extension: %s", path)
			errors.Details(errE)["path"] = path
			return nil, errE
		}
	}
	return plugins, nil
}

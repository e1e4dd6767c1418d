// Package awb is the root package of the automated wiki batch editor: it
// ties together the rewrite pipeline (internal/...) with the CLI (cmd/awb)
// and carries the top-level configuration, following peer-db's Globals
// pattern (config.go) closely.
package awb

import (
	"time"

	"github.com/alecthomas/kong"
	"gitlab.com/tozd/go/cli"
	"gitlab.com/tozd/go/zerolog"
)

const (
	// DefaultMinEditInterval is the minimum spacing between successful
	// edits for one credential (throttle controller, C9).
	DefaultMinEditInterval = 10 * time.Second
	// DefaultMaxlag is the maxlag seconds value attached to every
	// outbound MediaWiki API request.
	DefaultMaxlag = 5
	// DefaultSessionDir is the directory session/checkpoint state is
	// written to by default.
	DefaultSessionDir = "awb-sessions"
	// DefaultCacheSize bounds the page-content LRU cache.
	DefaultCacheSize = 256
	// DefaultLogEveryN controls bot-mode progress log frequency.
	DefaultLogEveryN = 25
)

// Globals describes top-level (global) flags shared by every subcommand.
// Rule-set and fix-config files are loaded and parsed by internal/cli
// (see internal/cli/load.go); Globals only carries their paths.
//
//nolint:lll
type Globals struct {
	zerolog.LoggingConfig `yaml:",inline"`

	Version kong.VersionFlag `help:"Show program's version and exit."             short:"V" yaml:"-"`
	Config  cli.ConfigFlag   `help:"Load configuration from a JSON or YAML file." name:"config" placeholder:"PATH" short:"c" yaml:"-"`

	Site            string        `help:"MediaWiki site host, e.g. en.wikipedia.org."                           placeholder:"HOST" required:""     yaml:"site"`
	Profile         string        `default:"default"                                                            help:"Credentials profile to authenticate as."                  placeholder:"NAME" yaml:"profile"`
	TokenFile       kong.FileContentFlag `env:"AWB_TOKEN_PATH" help:"File containing the OAuth2/bot-password bearer token." placeholder:"PATH" yaml:"-"`
	BotName         string        `help:"Bot account name used for {{bots}} policy checks."                     placeholder:"NAME" required:""     yaml:"bot_name"`
	RuleSetFile     string        `help:"Path to a YAML rule-set file."                                         placeholder:"PATH"                 yaml:"ruleset_file"`
	FixConfigFile   string        `help:"Path to a YAML fix-config file."                                       placeholder:"PATH"                 yaml:"fix_config_file"`
	StrictnessTier  int           `default:"0"                                                                  help:"General-fix strictness tier (0-3)."                       yaml:"strictness_tier"`
	SessionDir      string        `default:"${defaultSessionDir}"                                               help:"Directory session/checkpoint state is written to."       placeholder:"PATH" yaml:"session_dir"`
	PostgresDSN     string        `help:"Optional Postgres DSN for session storage instead of the file store." placeholder:"DSN"                  yaml:"postgres_dsn"`
	CacheSize       int           `default:"${defaultCacheSize}"                                                help:"Page-content cache capacity."                             yaml:"cache_size"`
	MinEditInterval time.Duration `default:"${defaultMinEditInterval}"                                          help:"Minimum spacing between successful edits."                yaml:"min_edit_interval"`
	Maxlag          int           `default:"${defaultMaxlag}"                                                   help:"maxlag seconds value sent with every API request."       yaml:"maxlag"`
	DryRun          bool          `help:"Compute edit plans without submitting them."                           yaml:"dry_run"`

	SkipNamespaces    []int  `help:"Only process pages in these namespace numbers; empty means all." placeholder:"NS" yaml:"skip_namespaces"`
	SkipRegexPattern  string `help:"Skip pages whose markup does not match this regexp (with --skip-regex-invert, skip pages whose markup matches)." placeholder:"PATTERN" yaml:"skip_regex_pattern"`
	SkipRegexInvert   bool   `help:"Invert --skip-regex-pattern into a skip-on-match filter."                yaml:"skip_regex_invert"`
	SkipMinSizeBytes  int64  `help:"Skip pages smaller than this many bytes."                                yaml:"skip_min_size_bytes"`
	SkipMaxSizeBytes  int64  `help:"Skip pages larger than this many bytes."                                 yaml:"skip_max_size_bytes"`
	SkipMaxProtection string `help:"Skip pages protected above this level (none, autoconfirmed, sysop)."     placeholder:"LEVEL" yaml:"skip_max_protection"`
	SkipRedirects     bool   `help:"Skip redirect pages."                                                    yaml:"skip_redirects"`
	SkipDisambigs     bool   `help:"Skip disambiguation pages."                                              yaml:"skip_disambigs"`

	PluginFiles []string `help:"Plugin scripts/modules to run last on every edit plan (.lua or .wasm)." placeholder:"PATH" yaml:"plugin_files"`
}

package awb

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/botpolicy"
	"gitlab.com/wikibot/awb/internal/botrunner"
	"gitlab.com/wikibot/awb/internal/cache"
	awbcli "gitlab.com/wikibot/awb/internal/cli"
	"gitlab.com/wikibot/awb/internal/diffengine"
	"gitlab.com/wikibot/awb/internal/fixes"
	"gitlab.com/wikibot/awb/internal/mwapi"
	"gitlab.com/wikibot/awb/internal/plugin"
	"gitlab.com/wikibot/awb/internal/ports"
	"gitlab.com/wikibot/awb/internal/review"
	"gitlab.com/wikibot/awb/internal/rules"
	"gitlab.com/wikibot/awb/internal/session"
	"gitlab.com/wikibot/awb/internal/skip"
	"gitlab.com/wikibot/awb/internal/throttle"
	"gitlab.com/wikibot/awb/internal/transform"
)

// pipeline bundles the wiring every subcommand needs, built once from
// Globals.
type pipeline struct {
	client     *mwapi.Client
	compiled   []rules.Compiled
	registry   *fixes.Registry
	fixCfg     domain.FixConfig
	skipEngine *skip.Engine
	plugins    []plugin.Plugin
	cache      *cache.Cache
	throttle   *throttle.Throttle
	retry      throttle.Policy
	sessions   ports.SessionStore
	logger     zerolog.Logger
}

func buildPipeline(ctx context.Context, g *Globals) (*pipeline, errors.E) {
	logger := g.Logger

	compiled, errE := awbcli.LoadRuleSet(g.RuleSetFile)
	if errE != nil {
		return nil, errE
	}
	fixCfg, errE := awbcli.LoadFixConfig(g.FixConfigFile, g.StrictnessTier)
	if errE != nil {
		return nil, errE
	}
	skipEngine, errE := awbcli.BuildSkipEngine(
		g.SkipNamespaces, g.SkipRegexPattern, g.SkipRegexInvert,
		g.SkipMinSizeBytes, g.SkipMaxSizeBytes, g.SkipMaxProtection,
		g.SkipRedirects, g.SkipDisambigs,
	)
	if errE != nil {
		return nil, errE
	}

	pageCache, errE := cache.New(g.CacheSize)
	if errE != nil {
		return nil, errE
	}

	plugins, errE := awbcli.LoadPlugins(g.PluginFiles, plugin.DefaultConfig())
	if errE != nil {
		return nil, errE
	}

	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	client := mwapi.New(g.Site, string(g.TokenFile), g.Maxlag, limiter, logger)

	if token, err := client.FetchCSRFToken(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to fetch csrf token, continuing unauthenticated")
	} else if token != "" {
		client = client.WithToken(token)
	}

	var sessions ports.SessionStore
	if g.PostgresDSN != "" {
		pg, err := session.NewPostgresStore(ctx, g.PostgresDSN)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sessions = pg
	} else {
		sessions = session.NewFileStore(g.SessionDir)
	}

	th := throttle.New(g.MinEditInterval, g.Maxlag)
	retry := throttle.Policy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Classify:   mwapi.Classify,
	}

	return &pipeline{
		client:     client,
		compiled:   compiled,
		registry:   awbcli.NewRegistry(),
		fixCfg:     fixCfg,
		skipEngine: skipEngine,
		plugins:    plugins,
		cache:      pageCache,
		throttle:   th,
		retry:      retry,
		sessions:   sessions,
		logger:     logger,
	}, nil
}

func (p *pipeline) fetchPage(ctx context.Context, title string) (domain.Page, error) {
	if page, ok := p.cache.Get(title); ok {
		return page, nil
	}
	page, err := p.client.FetchPage(ctx, title)
	if err != nil {
		return domain.Page{}, err
	}
	p.cache.Add(title, page)
	return page, nil
}

// RunCommand drives the review state machine interactively: for each page
// it prints the computed diff and prompts the operator for a decision.
//
//nolint:lll
type RunCommand struct {
	Titles []string `arg:"" help:"Page titles to process." name:"title"`
}

// Run implements the interactive review loop (spec.md §4.9, mode
// "interactive"): it drives the review.Machine event by event, performing
// the side effects the machine requests and reading the operator's
// decision from stdin at AwaitingDecision.
func (c *RunCommand) Run(globals *Globals) errors.E {
	ctx := context.Background()
	p, errE := buildPipeline(ctx, globals)
	if errE != nil {
		return errE
	}

	machine := review.New()
	reader := bufio.NewReader(os.Stdin)
	sessionID := fmt.Sprintf("run-%d", time.Now().Unix())

	effects := machine.Dispatch(review.Event{Kind: review.EvStart})
	effects = append(effects, machine.Dispatch(review.Event{Kind: review.EvListLoaded, Titles: c.Titles})...)

	for {
		if len(effects) == 0 {
			if machine.State().Kind != review.ErrorState {
				break
			}
			fmt.Printf("error: %v (continuing with next page)\n", machine.State().Err)
			effects = machine.Dispatch(review.Event{Kind: review.EvResume})
			if len(effects) == 0 {
				break
			}
		}

		var next []review.Effect
		for _, eff := range effects {
			switch eff.Kind {
			case review.EffFetchPage:
				page, err := p.fetchPage(ctx, eff.Title)
				if err != nil {
					next = append(next, machine.Dispatch(review.Event{Kind: review.EvPageError, Err: err})...)
					continue
				}
				next = append(next, machine.Dispatch(review.Event{Kind: review.EvPageFetched, Page: page})...)
			case review.EffApplyRules:
				decision := botpolicy.Check(eff.Page.Markup, globals.BotName)
				if !decision.Allowed {
					fmt.Printf("skipping %s: %s\n", eff.Page.Title.Name, decision.Reason)
					next = append(next, machine.Dispatch(review.Event{Kind: review.EvUserDecision, Decision: review.DecisionSkip})...)
					continue
				}
				if result := p.skipEngine.Evaluate(eff.Page); result.Skip {
					fmt.Printf("skipping %s: %s\n", eff.Page.Title.Name, result.Reason)
					next = append(next, machine.Dispatch(review.Event{Kind: review.EvUserDecision, Decision: review.DecisionSkip})...)
					continue
				}
				plan, errE := transform.Plan(eff.Page, p.compiled, p.registry, p.fixCfg, p.plugins...)
				if errE != nil {
					next = append(next, machine.Dispatch(review.Event{Kind: review.EvPageError, Err: errE})...)
					continue
				}
				next = append(next, machine.Dispatch(review.Event{Kind: review.EvRulesApplied, Plan: plan})...)
			case review.EffPresentForReview:
				next = append(next, c.promptDecision(machine, reader, eff.Plan)...)
			case review.EffExecuteEdit:
				next = append(next, c.executeEdit(ctx, p, machine, eff)...)
			case review.EffPersistSession:
				p.persistSession(ctx, sessionID, machine, c.Titles)
			case review.EffEmitWarning:
				fmt.Printf("warning: %v\n", eff.Warning)
			case review.EffShowComplete:
				fmt.Printf("done: %d saved, %d skipped, %d errored\n", eff.Stats.Saved, eff.Stats.Skipped, eff.Stats.Errored)
			}
		}
		effects = next
	}
	return nil
}

func (c *RunCommand) promptDecision(machine *review.Machine, reader *bufio.Reader, plan domain.EditPlan) []review.Effect {
	fmt.Printf("=== %s ===\n", plan.Page.Title.Name)
	fmt.Println(diffengine.ToUnified(plan.DiffOps, 3))
	fmt.Print("save/skip/pause? [s/k/p] ")
	line, _ := reader.ReadString('\n')
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "s", "save":
		return machine.Dispatch(review.Event{Kind: review.EvUserDecision, Decision: review.DecisionSave})
	case "p", "pause":
		return machine.Dispatch(review.Event{Kind: review.EvUserDecision, Decision: review.DecisionPause})
	default:
		return machine.Dispatch(review.Event{Kind: review.EvUserDecision, Decision: review.DecisionSkip})
	}
}

func (c *RunCommand) executeEdit(ctx context.Context, p *pipeline, machine *review.Machine, eff review.Effect) []review.Effect {
	if err := p.throttle.AcquireEditPermit(ctx); err != nil {
		return machine.Dispatch(review.Event{Kind: review.EvSaveFailed, Err: err})
	}
	req := ports.EditRequest{
		Title:          eff.Title,
		Text:           eff.Text,
		Summary:        eff.Summary,
		BaseTimestamp:  eff.Plan.Page.Timestamp.Format(time.RFC3339),
		StartTimestamp: time.Now().Format(time.RFC3339),
		Minor:          true,
		Bot:            true,
	}
	var result domain.SaveResult
	errDo := p.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = p.client.SubmitEdit(ctx, req)
		return err
	})
	if errDo != nil {
		return machine.Dispatch(review.Event{Kind: review.EvSaveFailed, Err: errDo})
	}
	return machine.Dispatch(review.Event{Kind: review.EvSaveComplete, SaveResult: result})
}

func (p *pipeline) persistSession(ctx context.Context, sessionID string, machine *review.Machine, titles []string) {
	rec := domain.SessionRecord{
		ID:        sessionID,
		Titles:    titles,
		Stats:     machine.Stats(),
		Mode:      domain.ModeInteractive,
		UpdatedAt: time.Now(),
	}
	if err := p.sessions.Save(ctx, rec); err != nil {
		p.logger.Warn().Err(err).Msg("failed to persist session")
	}
}

// BatchCommand runs the supervised-batch mode: every page is auto-decided
// (saved unless its plan carries a warning and SkipOnWarning is set) with
// no operator interaction.
type BatchCommand struct {
	Titles        []string `arg:""                              help:"Page titles to process." name:"title"`
	SkipOnWarning bool     `help:"Skip (rather than save) any page whose plan carries a warning."`
}

// Run processes every title non-interactively, saving unless
// SkipOnWarning vetoes it.
func (c *BatchCommand) Run(globals *Globals) errors.E {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, errE := buildPipeline(ctx, globals)
	if errE != nil {
		return errE
	}

	runnerCfg := botrunner.Config{
		BotName:           globals.BotName,
		DryRun:            globals.DryRun,
		SkipNoChange:      true,
		SkipOnWarning:     c.SkipOnWarning,
		EmergencyStopFile: "",
		LogEveryN:         DefaultLogEveryN,
		MinorEdits:        true,
	}
	sessionID := fmt.Sprintf("batch-%d", time.Now().Unix())
	runner := botrunner.New(runnerCfg, pageFetcherFunc(p.fetchPage), p.client, p.sessions,
		p.compiled, p.registry, p.fixCfg, p.skipEngine, p.plugins, p.throttle, p.retry, p.logger, c.Titles, domain.Checkpoint{})

	report := runner.Run(ctx, sessionID)
	fmt.Printf("done: %d saved, %d skipped, %d errored\n", report.Stats.Saved, report.Stats.Skipped, report.Stats.Errored)
	if report.Err != nil {
		return errors.WithStack(report.Err)
	}
	return nil
}

// pageFetcherFunc adapts a fetch function to ports.PageFetcher.
type pageFetcherFunc func(ctx context.Context, title string) (domain.Page, error)

func (f pageFetcherFunc) FetchPage(ctx context.Context, title string) (domain.Page, error) {
	return f(ctx, title)
}

// BotCommand runs the fully autonomous bot mode via the bot runner (C16).
//
//nolint:lll
type BotCommand struct {
	Titles            []string      `arg:""                                                        help:"Page titles to process." name:"title"`
	Summary           string        `help:"Edit summary to use for every save (overrides the plan's own summary)."`
	MaxEdits          int           `help:"Stop after this many successful saves (0 = unlimited)."`
	MaxRuntime        time.Duration `help:"Stop after this much wall-clock time has elapsed (0 = unlimited)."`
	EmergencyStopFile string        `help:"If this file exists before any page, stop immediately." placeholder:"PATH"`
	SkipOnWarning     bool          `help:"Skip (rather than save) any page whose plan carries a warning."`
}

// Run starts a fresh autonomous session (see ResumeCommand to continue one
// that stopped).
func (c *BotCommand) Run(globals *Globals) errors.E {
	sessionID := fmt.Sprintf("bot-%d", time.Now().Unix())
	return runBot(globals, sessionID, c.Titles, domain.Checkpoint{}, botrunner.Config{
		BotName:           globals.BotName,
		Summary:           c.Summary,
		DryRun:            globals.DryRun,
		SkipNoChange:      true,
		SkipOnWarning:     c.SkipOnWarning,
		MaxEdits:          c.MaxEdits,
		MaxRuntime:        c.MaxRuntime,
		EmergencyStopFile: c.EmergencyStopFile,
		LogEveryN:         DefaultLogEveryN,
		MinorEdits:        true,
	})
}

// ResumeCommand reloads a session by ID and continues an autonomous run
// from its checkpoint.
type ResumeCommand struct {
	SessionID string `arg:"" help:"Session ID to resume."`
}

// Run implements resumption: the session's titles and checkpoint are
// reloaded and fed back into the bot runner.
func (c *ResumeCommand) Run(globals *Globals) errors.E {
	ctx := context.Background()
	var store ports.SessionStore
	if globals.PostgresDSN != "" {
		pg, err := session.NewPostgresStore(ctx, globals.PostgresDSN)
		if err != nil {
			return errors.WithStack(err)
		}
		store = pg
	} else {
		store = session.NewFileStore(globals.SessionDir)
	}

	rec, err := store.Load(ctx, c.SessionID)
	if err != nil {
		return errors.WithStack(err)
	}

	return runBot(globals, rec.ID, rec.Titles, rec.Checkpoint, botrunner.Config{
		BotName:      globals.BotName,
		DryRun:       globals.DryRun,
		SkipNoChange: true,
		LogEveryN:    DefaultLogEveryN,
		MinorEdits:   true,
	})
}

func runBot(globals *Globals, sessionID string, titles []string, checkpoint domain.Checkpoint, cfg botrunner.Config) errors.E {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, errE := buildPipeline(ctx, globals)
	if errE != nil {
		return errE
	}

	runner := botrunner.New(cfg, pageFetcherFunc(p.fetchPage), p.client, p.sessions,
		p.compiled, p.registry, p.fixCfg, p.skipEngine, p.plugins, p.throttle, p.retry, p.logger, titles, checkpoint)

	report := runner.Run(ctx, sessionID)
	fmt.Printf("stopped: %s (%d saved, %d skipped, %d errored)\n", report.StopReason, report.Stats.Saved, report.Stats.Skipped, report.Stats.Errored)
	if report.Err != nil {
		return errors.WithStack(report.Err)
	}
	return nil
}

// ListSessionsCommand lists every persisted session ID.
type ListSessionsCommand struct{}

// Run prints one session ID per line.
func (c *ListSessionsCommand) Run(globals *Globals) errors.E {
	ctx := context.Background()
	var store ports.SessionStore
	if globals.PostgresDSN != "" {
		pg, err := session.NewPostgresStore(ctx, globals.PostgresDSN)
		if err != nil {
			return errors.WithStack(err)
		}
		store = pg
	} else {
		store = session.NewFileStore(globals.SessionDir)
	}

	ids, err := store.List(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// ShowSessionCommand prints one session's stored record.
type ShowSessionCommand struct {
	SessionID string `arg:"" help:"Session ID to show."`
}

// Run prints the session's titles, progress, and stats.
func (c *ShowSessionCommand) Run(globals *Globals) errors.E {
	ctx := context.Background()
	var store ports.SessionStore
	if globals.PostgresDSN != "" {
		pg, err := session.NewPostgresStore(ctx, globals.PostgresDSN)
		if err != nil {
			return errors.WithStack(err)
		}
		store = pg
	} else {
		store = session.NewFileStore(globals.SessionDir)
	}

	rec, err := store.Load(ctx, c.SessionID)
	if err != nil {
		return errors.WithStack(err)
	}

	fmt.Printf("session:  %s\n", rec.ID)
	fmt.Printf("mode:     %s\n", rec.Mode)
	fmt.Printf("pages:    %d\n", len(rec.Titles))
	fmt.Printf("progress: %d/%d\n", rec.Checkpoint.LastProcessedIndex+1, len(rec.Titles))
	fmt.Printf("saved:    %d\n", rec.Stats.Saved)
	fmt.Printf("skipped:  %d\n", rec.Stats.Skipped)
	fmt.Printf("errored:  %d\n", rec.Stats.Errored)
	fmt.Printf("updated:  %s\n", rec.UpdatedAt.Format(time.RFC3339))
	return nil
}

// Config is the top-level kong command tree.
type Config struct {
	Globals `yaml:"globals"`

	Run           RunCommand           `cmd:"" default:"withargs" help:"Drive the review loop interactively, prompting for a decision on each page." yaml:"run"`
	Batch         BatchCommand         `cmd:""                    help:"Run supervised-batch mode: auto-save unless warnings veto."                   yaml:"batch"`
	Bot           BotCommand           `cmd:""                    help:"Run fully autonomous bot mode."                                                yaml:"bot"`
	Resume        ResumeCommand        `cmd:""                    help:"Resume an interrupted bot session from its checkpoint."                        yaml:"resume"`
	ListSessions  ListSessionsCommand  `cmd:"" name:"list-sessions" help:"List every persisted session ID."                                            yaml:"list_sessions"`
	ShowSession   ShowSessionCommand   `cmd:"" name:"show-session"  help:"Show one session's stored progress and stats."                               yaml:"show_session"`
}

// Package botrunner implements the autonomous bot driver (C16): it walks a
// page list end to end with no human in the loop, checking stop conditions
// before every page and persisting a checkpoint after every page, following
// the structure of the original awb_bot::bot_runner::BotRunner.
package botrunner

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/botpolicy"
	"gitlab.com/wikibot/awb/internal/fixes"
	"gitlab.com/wikibot/awb/internal/plugin"
	"gitlab.com/wikibot/awb/internal/ports"
	"gitlab.com/wikibot/awb/internal/rules"
	"gitlab.com/wikibot/awb/internal/skip"
	"gitlab.com/wikibot/awb/internal/throttle"
	"gitlab.com/wikibot/awb/internal/transform"
)

// StopReason discriminates why a run ended early.
type StopReason int

const (
	StopNone StopReason = iota
	StopEmergencyFile
	StopMaxEdits
	StopMaxRuntime
	StopInterrupted
)

func (r StopReason) String() string {
	switch r {
	case StopEmergencyFile:
		return "emergency stop file present"
	case StopMaxEdits:
		return "maximum edits reached"
	case StopMaxRuntime:
		return "maximum runtime exceeded"
	case StopInterrupted:
		return "interrupted"
	default:
		return "none"
	}
}

// Config bounds one autonomous run.
type Config struct {
	BotName           string
	Summary           string
	DryRun            bool
	SkipNoChange      bool
	SkipOnWarning     bool
	MaxEdits          int // 0 means unlimited
	MaxRuntime        time.Duration // 0 means unlimited
	EmergencyStopFile string
	LogEveryN         int
	MinorEdits        bool
}

// Runner drives one autonomous edit session over a fixed page list.
type Runner struct {
	cfg        Config
	fetcher    ports.PageFetcher
	submitter  ports.EditSubmitter
	sessions   ports.SessionStore
	compiled   []rules.Compiled
	registry   *fixes.Registry
	fixCfg     domain.FixConfig
	skipEngine *skip.Engine
	plugins    []plugin.Plugin
	throttle   *throttle.Throttle
	retry      throttle.Policy
	logger     zerolog.Logger

	pages     []string
	checkpoint domain.Checkpoint
	stats     domain.Stats
	startTime time.Time
}

// New builds a Runner. checkpoint is the zero value for a fresh run, or a
// loaded domain.Checkpoint to resume a previously interrupted one.
func New(
	cfg Config,
	fetcher ports.PageFetcher,
	submitter ports.EditSubmitter,
	sessions ports.SessionStore,
	compiled []rules.Compiled,
	registry *fixes.Registry,
	fixCfg domain.FixConfig,
	skipEngine *skip.Engine,
	plugins []plugin.Plugin,
	th *throttle.Throttle,
	retry throttle.Policy,
	logger zerolog.Logger,
	pages []string,
	checkpoint domain.Checkpoint,
) *Runner {
	return &Runner{
		cfg:        cfg,
		fetcher:    fetcher,
		submitter:  submitter,
		sessions:   sessions,
		compiled:   compiled,
		registry:   registry,
		fixCfg:     fixCfg,
		skipEngine: skipEngine,
		plugins:    plugins,
		throttle:   th,
		retry:      retry,
		logger:     logger,
		pages:      pages,
		checkpoint: checkpoint,
	}
}

// Report is the outcome of a completed or halted run.
type Report struct {
	Stats      domain.Stats
	StopReason StopReason
	Err        error
}

// Run walks the page list starting after the checkpoint's last processed
// index, stopping at the first triggered stop condition.
func (r *Runner) Run(ctx context.Context, sessionID string) Report {
	r.startTime = time.Now()
	r.stats.Total = len(r.pages)
	r.logger.Info().Int("pages", len(r.pages)).Msg("starting bot run")

	startIndex := r.checkpoint.LastProcessedIndex
	if len(r.checkpoint.CompletedPages) > 0 {
		startIndex++
	}

	for index := startIndex; index < len(r.pages); index++ {
		if reason := r.shouldStop(ctx); reason != StopNone {
			r.logger.Info().Str("reason", reason.String()).Msg("stopping bot run")
			return r.finish(ctx, sessionID, reason, nil)
		}

		select {
		case <-ctx.Done():
			return r.finish(ctx, sessionID, StopInterrupted, ctx.Err())
		default:
		}

		title := r.pages[index]
		r.processPage(ctx, title)
		r.checkpoint.LastProcessedIndex = index
		r.checkpoint.CompletedPages = append(r.checkpoint.CompletedPages, title)
		r.checkpoint.LastSaveTime = time.Now()

		if r.sessions != nil {
			r.persistCheckpoint(ctx, sessionID)
		}

		if r.cfg.LogEveryN > 0 && (index+1)%r.cfg.LogEveryN == 0 {
			r.logger.Info().
				Int("processed", index+1).
				Int("total", len(r.pages)).
				Int("edited", r.stats.Saved).
				Int("skipped", r.stats.Skipped).
				Int("errored", r.stats.Errored).
				Msg("bot progress")
		}
	}

	r.logger.Info().Msg("bot run completed")
	return r.finish(ctx, sessionID, StopNone, nil)
}

func (r *Runner) processPage(ctx context.Context, title string) {
	page, err := r.fetcher.FetchPage(ctx, title)
	if err != nil {
		r.logger.Error().Err(err).Str("title", title).Msg("failed to fetch page")
		r.stats.Errored++
		r.checkpoint.PagesErrored++
		return
	}

	if result := r.skipEngine.Evaluate(page); result.Skip {
		r.logger.Debug().Str("title", title).Str("reason", result.Reason).Msg("skipping page")
		r.stats.Skipped++
		r.checkpoint.PagesSkipped++
		return
	}

	decision := botpolicy.Check(page.Markup, r.cfg.BotName)
	if !decision.Allowed {
		r.logger.Debug().Str("title", title).Str("reason", decision.Reason).Msg("bot-excluded page")
		r.stats.Skipped++
		r.checkpoint.PagesSkipped++
		return
	}

	plan, errE := transform.Plan(page, r.compiled, r.registry, r.fixCfg, r.plugins...)
	if errE != nil {
		r.logger.Error().Err(errE).Str("title", title).Msg("failed to build edit plan")
		r.stats.Errored++
		r.checkpoint.PagesErrored++
		return
	}

	if plan.NewMarkup == page.Markup && r.cfg.SkipNoChange {
		r.stats.Skipped++
		r.checkpoint.PagesSkipped++
		return
	}
	if len(plan.Warnings) > 0 && r.cfg.SkipOnWarning {
		r.logger.Debug().Str("title", title).Int("warnings", len(plan.Warnings)).Msg("skipping page with warnings")
		r.stats.Skipped++
		r.checkpoint.PagesSkipped++
		return
	}

	if r.cfg.DryRun {
		r.logger.Info().Str("title", title).Msg("dry-run: would edit page")
		r.stats.Skipped++
		r.checkpoint.PagesSkipped++
		return
	}

	if err := r.throttle.AcquireEditPermit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("interrupted waiting for edit permit")
		r.stats.Errored++
		r.checkpoint.PagesErrored++
		return
	}

	summary := plan.Summary
	if r.cfg.Summary != "" {
		summary = r.cfg.Summary
	}

	req := ports.EditRequest{
		Title:          title,
		Text:           plan.NewMarkup,
		Summary:        summary,
		BaseTimestamp:  page.Timestamp.Format(time.RFC3339),
		StartTimestamp: time.Now().Format(time.RFC3339),
		Minor:          r.cfg.MinorEdits,
		Bot:            true,
	}

	var saveErr error
	errDo := r.retry.Do(ctx, func(ctx context.Context) error {
		_, saveErr = r.submitter.SubmitEdit(ctx, req)
		return saveErr
	})
	if errDo != nil {
		r.logger.Error().Err(errDo).Str("title", title).Msg("edit failed")
		r.stats.Errored++
		r.checkpoint.PagesErrored++
		return
	}

	r.logger.Info().Str("title", title).Msg("saved page")
	r.stats.Saved++
	r.checkpoint.PagesEdited++
}

func (r *Runner) shouldStop(_ context.Context) StopReason {
	if r.cfg.EmergencyStopFile != "" {
		if _, err := os.Stat(r.cfg.EmergencyStopFile); err == nil {
			return StopEmergencyFile
		}
	}
	if r.cfg.MaxEdits > 0 && r.stats.Saved >= r.cfg.MaxEdits {
		return StopMaxEdits
	}
	if r.cfg.MaxRuntime > 0 && time.Since(r.startTime) >= r.cfg.MaxRuntime {
		return StopMaxRuntime
	}
	return StopNone
}

func (r *Runner) persistCheckpoint(ctx context.Context, sessionID string) {
	rec := domain.SessionRecord{
		ID:           sessionID,
		Titles:       r.pages,
		CurrentIndex: r.checkpoint.LastProcessedIndex,
		Stats:        r.stats,
		Checkpoint:   r.checkpoint,
		Mode:         domain.ModeAutonomous,
		UpdatedAt:    time.Now(),
	}
	if err := r.sessions.Save(ctx, rec); err != nil {
		r.logger.Warn().Err(err).Msg("failed to persist checkpoint")
	}
}

func (r *Runner) finish(ctx context.Context, sessionID string, reason StopReason, err error) Report {
	r.stats.ElapsedSecs = time.Since(r.startTime).Seconds()
	if r.sessions != nil {
		r.persistCheckpoint(ctx, sessionID)
	}
	if reason == StopInterrupted && err == nil {
		err = errors.New("bot run interrupted")
	}
	return Report{Stats: r.stats, StopReason: reason, Err: err}
}

// Package domain holds the data model shared by every engine in the rewrite
// pipeline: pages, rules, edit plans, diff ops, and the review state shape.
// Types here are plain values, owned per-iteration by the review state
// machine and borrowed immutably by the pure engines that operate on them.
package domain

import "time"

// ProtectionLevel ranks edit-protection, lowest to highest.
type ProtectionLevel int

const (
	ProtectionNone ProtectionLevel = iota
	ProtectionAutoconfirmed
	ProtectionExtendedConfirmed
	ProtectionSysop
)

// ParseProtectionLevel maps the wire strings used by MediaWiki-compatible
// APIs to the ranked enum. Unknown strings map to ProtectionNone.
func ParseProtectionLevel(s string) ProtectionLevel {
	switch s {
	case "autoconfirmed":
		return ProtectionAutoconfirmed
	case "extendedconfirmed":
		return ProtectionExtendedConfirmed
	case "sysop":
		return ProtectionSysop
	default:
		return ProtectionNone
	}
}

// Title identifies a page by namespace and name.
type Title struct {
	Namespace int
	Name      string
}

// Properties carries the page properties the skip engine and defaultsort
// fix need.
type Properties struct {
	IsDisambig   bool
	WikibaseItem string
}

// Page is a single fetched wiki page.
type Page struct {
	PageID     int64
	RevisionID int64
	Title      Title
	Markup     string
	Timestamp  time.Time
	SizeBytes  int64
	IsRedirect bool
	Protection ProtectionLevel
	Properties Properties
}

// RuleKind discriminates the two rule forms.
type RuleKind int

const (
	RuleKindLiteral RuleKind = iota
	RuleKindPattern
)

// Rule is one substitution, either a literal find/replace or a regular
// expression pattern/replacement.
type Rule struct {
	ID              string
	Enabled         bool
	Order           int
	Kind            RuleKind
	Find            string // RuleKindLiteral
	Replace         string // RuleKindLiteral
	CaseSensitive   bool   // RuleKindLiteral
	Pattern         string // RuleKindPattern
	Replacement     string // RuleKindPattern
	CaseInsensitive bool   // RuleKindPattern
	CommentFragment string
}

// FixClassification buckets a fix module by how much it changes meaning.
type FixClassification int

const (
	ClassificationCosmetic FixClassification = iota
	ClassificationMaintenance
	ClassificationStyleSensitive
	ClassificationEditorial
)

// FixContext is the read-only page context a fix module may consult.
type FixContext struct {
	Title      Title
	Namespace  int
	IsRedirect bool
}

// FixConfig gates which fix modules run.
type FixConfig struct {
	StrictnessTier     int
	EnabledFixes       map[string]bool
	DisabledFixes      map[string]bool
	AllowCosmeticOnly  bool
}

// WarningKind discriminates the Warning union.
type WarningKind int

const (
	WarningNoChange WarningKind = iota
	WarningLargeChange
	WarningPatternError
	WarningSuspicious
)

// Warning is a tagged union surfaced alongside an EditPlan.
type Warning struct {
	Kind        WarningKind
	Added       int    // WarningLargeChange
	Removed     int    // WarningLargeChange
	Threshold   int    // WarningLargeChange
	RuleID      string // WarningPatternError
	Message     string // WarningPatternError
	Description string // WarningSuspicious
}

// DiffOpKind discriminates the DiffOp union.
type DiffOpKind int

const (
	DiffEqual DiffOpKind = iota
	DiffInsert
	DiffDelete
	DiffReplace
)

// DiffOp is one line-level edit operation, carrying byte ranges into both
// the old and new text plus the literal text on each side.
type DiffOp struct {
	Kind        DiffOpKind
	OldStart    int
	OldEnd      int
	NewStart    int
	NewEnd      int
	OldText     string
	NewText     string
}

// EditPlan is the per-page output of the transform engine.
type EditPlan struct {
	Page          Page
	NewMarkup     string
	RulesApplied  []string
	FixesApplied  []string
	DiffOps       []DiffOp
	Summary       string
	Warnings      []Warning
	IsCosmeticOnly bool
}

// SaveResult is returned by the edit submitter port on success.
type SaveResult struct {
	Result        string
	NewRevisionID int64
	NewTimestamp  time.Time
}

// Stats tracks running totals for a review session.
type Stats struct {
	Total       int
	Saved       int
	Skipped     int
	Errored     int
	ElapsedSecs float64
}

// Checkpoint is the durable progress record for a bot-mode run.
type Checkpoint struct {
	LastProcessedIndex int
	CompletedPages     []string
	PagesEdited        int
	PagesSkipped       int
	PagesErrored       int
	LastSaveTime       time.Time
}

// SessionMode selects how the review machine resolves decisions.
type SessionMode string

const (
	ModeInteractive      SessionMode = "interactive"
	ModeSupervisedBatch  SessionMode = "supervised-batch"
	ModeAutonomous       SessionMode = "autonomous"
)

// SessionRecord is the durable state of one review session.
type SessionRecord struct {
	ID           string
	Titles       []string
	CurrentIndex int
	Stats        Stats
	Checkpoint   Checkpoint
	Mode         SessionMode
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Package ports declares the external collaborator interfaces the core
// consumes: a page fetcher, an edit submitter, and a session store. The
// core depends only on these small interfaces, never on a concrete
// MediaWiki HTTP client, so it can be driven by fakes in tests.
package ports

import (
	"context"

	"gitlab.com/wikibot/awb/domain"
)

// PageFetcher fetches a page's current content by title.
type PageFetcher interface {
	FetchPage(ctx context.Context, title string) (domain.Page, error)
}

// EditRequest carries everything an EditSubmitter needs to submit one edit.
type EditRequest struct {
	Title           string
	Text            string
	Summary         string
	Section         string
	BaseTimestamp   string
	StartTimestamp  string
	Minor           bool
	Bot             bool
}

// EditSubmitter submits a new revision for a page.
type EditSubmitter interface {
	SubmitEdit(ctx context.Context, req EditRequest) (domain.SaveResult, error)
}

// SessionStore persists and restores session records (C13).
type SessionStore interface {
	Save(ctx context.Context, rec domain.SessionRecord) error
	Load(ctx context.Context, id string) (domain.SessionRecord, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

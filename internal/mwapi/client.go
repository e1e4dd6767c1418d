// Package mwapi implements the MediaWiki action API adapter (C12): the
// page fetcher and edit submitter ports the core consumes, built on a
// pooled retryablehttp client and a shared rate limiter, mirroring
// peer-db's internal/wikipedia/api.go client-construction pattern.
package mwapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"gitlab.com/wikibot/awb/domain"
	"gitlab.com/wikibot/awb/internal/ports"
)

const (
	clientRetryMax     = 5
	clientRetryWaitMax = 60 * time.Second
	userAgent          = "AWB-bot/1.0 (automated wiki editor)"
)

// Client fetches and edits pages against one MediaWiki site's action API.
type Client struct {
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	site       string
	token      string
	maxlag     int
}

// New builds a Client for site (host name, no scheme), authorizing
// requests with token and attaching maxlag to every request.
func New(site, token string, maxlag int, limiter *rate.Limiter, logger zerolog.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient = cleanhttp.DefaultPooledClient()
	httpClient.RetryMax = clientRetryMax
	httpClient.RetryWaitMax = clientRetryWaitMax
	httpClient.Logger = nil
	httpClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, retry int) {
		req.Header.Set("User-Agent", userAgent)
		if retry > 0 {
			logger.Debug().Str("url", req.URL.String()).Int("retry", retry).Msg("retrying mediawiki request")
		}
	}

	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		site:       site,
		token:      token,
		maxlag:     maxlag,
	}
}

type queryResponse struct {
	Error json.RawMessage `json:"error,omitempty"`
	Query struct {
		Pages []pageResult `json:"pages"`
	} `json:"query"`
}

type pageResult struct {
	PageID     int64             `json:"pageid"`
	Namespace  int               `json:"ns"`
	Title      string            `json:"title"`
	Touched    string            `json:"touched"`
	Length     int64             `json:"length"`
	Revisions  []revisionResult  `json:"revisions"`
	Protection []protectionEntry `json:"protection"`
	PageProps  map[string]string `json:"pageprops"`
}

type revisionResult struct {
	RevID int64 `json:"revid"`
	Slots struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

type protectionEntry struct {
	Type  string `json:"type"`
	Level string `json:"level"`
}

const pageListLimit = 500

type listResponse struct {
	Error         json.RawMessage `json:"error,omitempty"`
	BatchComplete bool            `json:"batchcomplete"`
	Continue      map[string]string `json:"continue"`
	Query         struct {
		Pages []pageResult `json:"pages"`
	} `json:"query"`
}

// ListPages enumerates page titles in namespace via generator=allpages,
// following continuation tokens until exhausted, mirroring peer-db's
// internal/wikipedia.ListAllPages continuation loop.
func (c *Client) ListPages(ctx context.Context, namespace int) ([]string, error) {
	data := url.Values{}
	data.Set("action", "query")
	data.Set("format", "json")
	data.Set("formatversion", "2")
	data.Set("generator", "allpages")
	data.Set("gapnamespace", strconv.Itoa(namespace))
	data.Set("gaplimit", strconv.Itoa(pageListLimit))
	data.Set("maxlag", strconv.Itoa(c.maxlag))

	var titles []string
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.WithStack(err)
		}

		var resp listResponse
		if err := c.doGet(ctx, data, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, classifyAPIError(resp.Error)
		}
		for _, p := range resp.Query.Pages {
			titles = append(titles, p.Title)
		}
		if len(resp.Continue) == 0 {
			break
		}
		for key, value := range resp.Continue {
			data.Set(key, value)
		}
	}
	return titles, nil
}

// SearchPages enumerates page titles matching query via generator=search,
// bounded by limit results.
func (c *Client) SearchPages(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > pageListLimit {
		limit = pageListLimit
	}

	data := url.Values{}
	data.Set("action", "query")
	data.Set("format", "json")
	data.Set("formatversion", "2")
	data.Set("generator", "search")
	data.Set("gsrsearch", query)
	data.Set("gsrlimit", strconv.Itoa(limit))
	data.Set("maxlag", strconv.Itoa(c.maxlag))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	var resp listResponse
	if err := c.doGet(ctx, data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, classifyAPIError(resp.Error)
	}

	titles := make([]string, 0, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		titles = append(titles, p.Title)
	}
	return titles, nil
}

// FetchCSRFToken obtains the CSRF token required by state-changing
// requests, to be passed as the token on the Client.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("action", "query")
	data.Set("format", "json")
	data.Set("formatversion", "2")
	data.Set("meta", "tokens")
	data.Set("type", "csrf")
	data.Set("maxlag", strconv.Itoa(c.maxlag))

	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.WithStack(err)
	}

	var resp struct {
		Error json.RawMessage `json:"error,omitempty"`
		Query struct {
			Tokens struct {
				CSRFToken string `json:"csrftoken"`
			} `json:"tokens"`
		} `json:"query"`
	}
	if err := c.doGet(ctx, data, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", classifyAPIError(resp.Error)
	}
	return resp.Query.Tokens.CSRFToken, nil
}

// WithToken returns a shallow copy of the client authorized with token,
// for use after FetchCSRFToken.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// FetchPage implements ports.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, title string) (domain.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Page{}, errors.WithStack(err)
	}

	data := url.Values{}
	data.Set("action", "query")
	data.Set("format", "json")
	data.Set("formatversion", "2")
	data.Set("prop", "revisions|info|pageprops")
	data.Set("rvprop", "ids|content")
	data.Set("rvslots", "main")
	data.Set("inprop", "protection")
	data.Set("titles", title)
	data.Set("maxlag", strconv.Itoa(c.maxlag))

	var resp queryResponse
	if err := c.doGet(ctx, data, &resp); err != nil {
		return domain.Page{}, err
	}
	if resp.Error != nil {
		return domain.Page{}, classifyAPIError(resp.Error)
	}
	if len(resp.Query.Pages) == 0 {
		errE := errors.New("page not found")
		errors.Details(errE)["title"] = title
		return domain.Page{}, errE
	}

	pr := resp.Query.Pages[0]
	if len(pr.Revisions) == 0 {
		errE := errors.New("page has no revisions")
		errors.Details(errE)["title"] = title
		return domain.Page{}, errE
	}
	markup := pr.Revisions[0].Slots.Main.Content
	revID := pr.Revisions[0].RevID

	touched, _ := time.Parse(time.RFC3339, pr.Touched)

	protection := domain.ProtectionNone
	for _, p := range pr.Protection {
		if p.Type != "edit" {
			continue
		}
		if lvl := domain.ParseProtectionLevel(p.Level); lvl > protection {
			protection = lvl
		}
	}

	_, isDisambig := pr.PageProps["disambiguation"]

	return domain.Page{
		PageID:     pr.PageID,
		RevisionID: revID,
		Title:      domain.Title{Namespace: pr.Namespace, Name: pr.Title},
		Markup:     markup,
		Timestamp:  touched,
		SizeBytes:  pr.Length,
		IsRedirect: false,
		Protection: protection,
		Properties: domain.Properties{IsDisambig: isDisambig},
	}, nil
}

type editResponse struct {
	Error json.RawMessage `json:"error,omitempty"`
	Edit  struct {
		Result    string `json:"result"`
		NewRevID  int64  `json:"newrevid"`
		NewTimest string `json:"newtimestamp"`
	} `json:"edit"`
}

// SubmitEdit implements ports.EditSubmitter.
func (c *Client) SubmitEdit(ctx context.Context, req ports.EditRequest) (domain.SaveResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.SaveResult{}, errors.WithStack(err)
	}

	data := url.Values{}
	data.Set("action", "edit")
	data.Set("format", "json")
	data.Set("formatversion", "2")
	data.Set("title", req.Title)
	data.Set("text", req.Text)
	data.Set("summary", req.Summary)
	data.Set("token", c.token)
	data.Set("maxlag", strconv.Itoa(c.maxlag))
	data.Set("basetimestamp", req.BaseTimestamp)
	data.Set("starttimestamp", req.StartTimestamp)
	if req.Section != "" {
		data.Set("section", req.Section)
	}
	if req.Minor {
		data.Set("minor", "1")
	}
	if req.Bot {
		data.Set("bot", "1")
	}

	var resp editResponse
	if err := c.doPost(ctx, data, &resp); err != nil {
		return domain.SaveResult{}, err
	}
	if resp.Error != nil {
		return domain.SaveResult{}, classifyAPIError(resp.Error)
	}
	if resp.Edit.Result != "Success" {
		errE := errors.Errorf("edit rejected: %s", resp.Edit.Result)
		errors.Details(errE)["result"] = resp.Edit.Result
		return domain.SaveResult{}, errE
	}

	newTimestamp, _ := time.Parse(time.RFC3339, resp.Edit.NewTimest)
	return domain.SaveResult{
		Result:        resp.Edit.Result,
		NewRevisionID: resp.Edit.NewRevID,
		NewTimestamp:  newTimestamp,
	}, nil
}

func (c *Client) doGet(ctx context.Context, data url.Values, out any) error {
	apiURL := fmt.Sprintf("https://%s/w/api.php?%s", c.site, data.Encode())
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	return c.do(req, apiURL, out)
}

func (c *Client) doPost(ctx context.Context, data url.Values, out any) error {
	apiURL := fmt.Sprintf("https://%s/w/api.php", c.site)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, apiURL, out)
}

func (c *Client) do(req *retryablehttp.Request, apiURL string, out any) error {
	if c.token != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		errE := errors.WithStack(err)
		errors.Details(errE)["url"] = apiURL
		return errE
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		errE := errors.New("bad response status")
		errors.Details(errE)["url"] = apiURL
		errors.Details(errE)["code"] = resp.StatusCode
		errors.Details(errE)["body"] = strings.TrimSpace(string(body))
		return errE
	}

	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		errE := errors.WithStack(err)
		errors.Details(errE)["url"] = apiURL
		return errE
	}
	return nil
}

// classifyAPIError turns a raw MediaWiki "error" object into a typed Go
// error carrying the code/info for the caller's retry classifier.
func classifyAPIError(raw json.RawMessage) error {
	var apiErr struct {
		Code string `json:"code"`
		Info string `json:"info"`
	}
	_ = json.Unmarshal(raw, &apiErr)
	errE := errors.Errorf("mediawiki api error: %s", apiErr.Info)
	errors.Details(errE)["code"] = apiErr.Code
	errors.Details(errE)["info"] = apiErr.Info
	return errE
}

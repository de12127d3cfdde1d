// Package scite implements the evidence.Source contract against a
// scite.ai-style citation search API.
package scite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"debrief/internal/evidence"
)

const (
	defaultTimeout   = 20 * time.Second
	minSnippetLength = 30
	searchPath       = "/search/v2"
)

var (
	citeTagPattern = regexp.MustCompile(`(?s)<cite[^>]*>.*?</cite>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
)

// Client talks to the citation search API. Transient failures degrade to
// empty results after one retry: noisy retrieval must never fail a run.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a citation search client. An empty apiKey produces an
// unconfigured client; callers check Configured before searching.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API credential is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// searchResponse mirrors the citation search API payload.
type searchResponse struct {
	Count int `json:"count"`
	Hits  []struct {
		DOI       string `json:"doi"`
		Title     string `json:"title"`
		Citations []struct {
			Snippet string `json:"snippet"`
			Section string `json:"section"`
			Type    string `json:"type"`
		} `json:"citations"`
	} `json:"hits"`
}

// Search returns up to limit cleaned snippets for the query. Exhausted
// retries yield an empty slice, never an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]evidence.Snippet, error) {
	params := url.Values{
		"term":  {query},
		"mode":  {"citations"},
		"limit": {strconv.Itoa(limit)},
	}

	var resp searchResponse
	if ok := c.get(ctx, params, &resp); !ok {
		return nil, nil
	}

	var snippets []evidence.Snippet
	for _, hit := range resp.Hits {
		title := cleanHTML(hit.Title)
		for _, cite := range hit.Citations {
			if cite.Snippet == "" {
				continue
			}
			text := cleanHTML(cite.Snippet)
			if len(text) < minSnippetLength {
				continue
			}
			citationType := cite.Type
			if citationType == "" {
				citationType = evidence.CitationMentioning
			}
			snippets = append(snippets, evidence.Snippet{
				Text:         text,
				DocumentID:   hit.DOI,
				Title:        title,
				Section:      cite.Section,
				CitationType: citationType,
			})
		}
	}
	return snippets, nil
}

// CountByType returns the number of citations of the given type matching the
// query. Failures degrade to zero.
func (c *Client) CountByType(ctx context.Context, query string, citationType string) (int, error) {
	params := url.Values{
		"term":           {query},
		"mode":           {"citations"},
		"limit":          {"1"},
		"citation_types": {citationType},
	}

	var resp searchResponse
	if ok := c.get(ctx, params, &resp); !ok {
		return 0, nil
	}
	return resp.Count, nil
}

// get performs the API call with one retry on server errors or timeouts.
// Returns false when no usable response was obtained.
func (c *Client) get(ctx context.Context, params url.Values, out *searchResponse) bool {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+params.Encode(), nil)
		if err != nil {
			c.logWarn(ctx, "build evidence search request failed", err)
			return false
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logWarn(ctx, "evidence search call failed", err)
			continue
		}

		func() {
			defer resp.Body.Close()
			switch {
			case resp.StatusCode >= 500:
				err = fmt.Errorf("server error: %s", resp.Status)
			case resp.StatusCode >= 400:
				// Client errors will not improve on retry.
				err = fmt.Errorf("client error: %s", resp.Status)
			default:
				err = json.NewDecoder(resp.Body).Decode(out)
			}
		}()

		if err == nil {
			return true
		}
		c.logWarn(ctx, "evidence search response unusable", err)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return false
		}
	}
	return false
}

func (c *Client) logWarn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "error", err)
	}
}

func cleanHTML(text string) string {
	text = citeTagPattern.ReplaceAllString(text, "")
	text = htmlTagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

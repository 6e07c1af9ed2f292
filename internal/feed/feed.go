// Package feed loads blog posts through an RSS-to-JSON bridge.
//
// A page mount issues exactly one request. There is no retry, no caching and
// no pagination; every failure is terminal for that attempt and is reported as
// one of three categories so the page can show a matching message.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tusharganotra/portfolio/internal/logging"
)

var (
	// ErrTransport covers network failures, non-2xx replies and bodies that
	// are not the expected JSON.
	ErrTransport = errors.New("feed: transport failure")
	// ErrStatus means the bridge answered with a status other than "ok".
	ErrStatus = errors.New("feed: bridge status not ok")
	// ErrEmpty means the bridge answered "ok" with no items.
	ErrEmpty = errors.New("feed: no posts")
)

// Outcome labels reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport"
	OutcomeStatus    = "status"
	OutcomeEmpty     = "empty"
)

// Post is one item of the bridge response.
type Post struct {
	Title       string   `json:"title"`
	PubDate     string   `json:"pubDate"`
	Link        string   `json:"link"`
	GUID        string   `json:"guid"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// Source describes the feed itself.
type Source struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Envelope is the bridge's JSON reply.
type Envelope struct {
	Status string `json:"status"`
	Feed   Source `json:"feed"`
	Items  []Post `json:"items"`
}

// Observer is told the outcome and latency of every fetch.
type Observer interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(string, time.Duration) {}

// Config describes where the posts come from.
type Config struct {
	Endpoint   string        // bridge endpoint, e.g. https://api.rss2json.com/v1/api.json
	RSSURL     string        // feed passed as rss_url
	ProfileURL string        // fallback link shown on error and empty pages
	Timeout    time.Duration // whole-request timeout
}

// Client fetches posts from the bridge.
type Client struct {
	cfg      Config
	http     *http.Client
	observer Observer
	log      *slog.Logger
}

// NewClient builds a Client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, observer Observer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Client{
		cfg:      cfg,
		http:     httpClient,
		observer: observer,
		log:      logging.WithComponent("feed"),
	}
}

// ProfileURL is the fallback link for error and empty states.
func (c *Client) ProfileURL() string {
	return c.cfg.ProfileURL
}

// Fetch issues one request and returns the posts. Errors wrap ErrTransport,
// ErrStatus or ErrEmpty.
func (c *Client) Fetch(ctx context.Context) ([]Post, error) {
	start := time.Now()
	posts, err := c.fetch(ctx)
	outcome := outcomeOf(err)
	c.observer.ObserveFetch(outcome, time.Since(start))
	if err != nil {
		c.log.Warn("fetch posts failed", slog.String("outcome", outcome), slog.Any("err", err))
		return nil, err
	}
	c.log.Debug("fetched posts", slog.Int("count", len(posts)))
	return posts, nil
}

func (c *Client) fetch(ctx context.Context) ([]Post, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", ErrTransport, err)
	}
	q := u.Query()
	q.Set("rss_url", c.cfg.RSSURL)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: http %d", ErrTransport, resp.StatusCode)
	}

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrTransport, err)
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("%w: %q", ErrStatus, env.Status)
	}
	if len(env.Items) == 0 {
		return nil, ErrEmpty
	}
	return env.Items, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrEmpty):
		return OutcomeEmpty
	case errors.Is(err, ErrStatus):
		return OutcomeStatus
	default:
		return OutcomeTransport
	}
}

// Message is the user-visible text for a fetch error.
func Message(err error) string {
	switch outcomeOf(err) {
	case OutcomeOK:
		return ""
	case OutcomeEmpty:
		return "No posts found yet. They usually take a few minutes to sync from Medium."
	case OutcomeStatus:
		return "Failed to fetch blog posts."
	default:
		return "Failed to load blog posts. Please try again later."
	}
}

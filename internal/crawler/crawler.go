package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devapeu/aomstats-crawler/internal/models"
)

const (
	// DefaultBaseURL is the public aomstats API root.
	DefaultBaseURL = "https://aomstats.io"

	// DefaultThrottle spaces out page requests against the upstream API.
	DefaultThrottle = 500 * time.Millisecond

	maxPageAttempts = 3
	// fetchConcurrency bounds simultaneous per-player crawls during a
	// roster sync.
	fetchConcurrency = 3
)

// Prometheus metrics
var (
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aomstats_crawl_pages_total",
		Help: "Total number of match-history pages fetched",
	})

	matchesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aomstats_crawl_rows_total",
		Help: "Total number of match rows fetched from the upstream API",
	})

	pageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aomstats_crawl_page_failures_total",
		Help: "Total number of page fetches that failed after retries",
	})
)

// Client crawls a player's paginated match history from the stats API,
// stepping the before cursor back one page at a time.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	throttle     time.Duration
	retryBackoff time.Duration
	logger       *zap.SugaredLogger
	now          func() time.Time
}

// NewClient builds a crawler against baseURL. throttle is the pause between
// consecutive page requests of a single crawl.
func NewClient(baseURL string, throttle time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		throttle:     throttle,
		retryBackoff: 2 * time.Second,
		logger:       logger.Sugar(),
		now:          time.Now,
	}
}

// FetchSince pages backwards through a player's match history, starting from
// now. With beforeLimit > 0 the crawl stops once a whole page falls at or
// before the limit, so an incremental sync only walks the unseen tail. Pages
// already fetched are returned even when a later page fails.
func (c *Client) FetchSince(ctx context.Context, profileID, beforeLimit int64) ([]models.RawMatch, error) {
	var all []models.RawMatch
	before := c.now().Unix()

	for {
		page, err := c.fetchPage(ctx, profileID, before)
		if err != nil {
			pageFailures.Inc()
			return all, err
		}
		pagesFetched.Inc()
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		matchesFetched.Add(float64(len(page)))

		earliest, latest := page[0].StartGameTime, page[0].StartGameTime
		for _, m := range page[1:] {
			if m.StartGameTime < earliest {
				earliest = m.StartGameTime
			}
			if m.StartGameTime > latest {
				latest = m.StartGameTime
			}
		}
		if earliest == 0 {
			break
		}
		if beforeLimit > 0 && beforeLimit > latest {
			break
		}

		before = earliest - 1
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case <-time.After(c.throttle):
		}
	}

	c.logger.Infow("Crawled player history",
		"profile_id", profileID, "rows", len(all), "before_limit", beforeLimit)
	return all, nil
}

// FetchAll crawls every roster player concurrently and returns the combined
// rows deduplicated on (match_id, profile_id). since maps each player to the
// incremental watermark passed as that player's beforeLimit.
func (c *Client) FetchAll(ctx context.Context, profileIDs []int64, since map[int64]int64) ([]models.RawMatch, error) {
	var (
		mu  sync.Mutex
		all []models.RawMatch
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, id := range profileIDs {
		id := id
		g.Go(func() error {
			rows, err := c.FetchSince(ctx, id, since[id])
			if err != nil {
				return fmt.Errorf("crawl player %d: %w", id, err)
			}
			mu.Lock()
			all = append(all, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[[2]int64]bool, len(all))
	deduped := all[:0]
	for _, m := range all {
		k := [2]int64{m.MatchID, m.ProfileID}
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, m)
	}
	return deduped, nil
}

// fetchPage retrieves one page, retrying transient transport errors with a
// short backoff and honoring Retry-After on 429.
func (c *Client) fetchPage(ctx context.Context, profileID, before int64) ([]models.RawMatch, error) {
	url := fmt.Sprintf("%s/api/profile/%d/matches?leaderboard=0&before=%d", c.baseURL, profileID, before)

	var lastErr error
	backoff := c.retryBackoff
	for attempt := 1; attempt <= maxPageAttempts; attempt++ {
		page, retryAfter, err := c.doRequest(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == maxPageAttempts {
			break
		}

		wait := backoff
		if retryAfter > 0 {
			wait = retryAfter
		}
		c.logger.Warnw("Page fetch failed, retrying",
			"profile_id", profileID, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("fetch page for player %d: %w", profileID, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string) ([]models.RawMatch, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 10 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, retryAfter, fmt.Errorf("upstream rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	// Each row is kept verbatim alongside the typed decode so fields the
	// pipeline does not promote still reach storage.
	var rawRows []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rawRows); err != nil {
		return nil, 0, fmt.Errorf("decode page: %w", err)
	}
	page := make([]models.RawMatch, 0, len(rawRows))
	for _, raw := range rawRows {
		var m models.RawMatch
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, 0, fmt.Errorf("decode page row: %w", err)
		}
		m.RawData = raw
		page = append(page, m)
	}
	return page, 0, nil
}

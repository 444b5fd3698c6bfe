// Package search finds candidate source pages for a pipeline request.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/resilience"
)

const (
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	DefaultCount    = 4

	braveMaxBodyBytes = 2 << 20
	braveMaxCount     = 20
)

// openDomains are open educational resource hosts ranked ahead of other results
var openDomains = []string{
	"openstax.org",
	"libretexts.org",
	"oercommons.org",
	"saylor.org",
	"ck12.org",
	"khanacademy.org",
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Brave queries the Brave web search API
type Brave struct {
	apiKey   string
	endpoint string
	count    int
	client   *http.Client
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

func NewBrave(apiKey, endpoint string, count int) *Brave {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if count <= 0 {
		count = DefaultCount
	}
	return &Brave{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		count:    count,
		client:   &http.Client{Timeout: 15 * time.Second},
		retry:    resilience.DefaultRetryConfig(),
		logger:   slog.Default().With("component", "brave-search"),
	}
}

// BuildQuery turns a request into a web query
func BuildQuery(req model.PipelineRequest) string {
	parts := []string{strings.TrimSpace(req.Subject)}
	for _, t := range req.Topics {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	parts = append(parts, "textbook practice questions")
	return strings.Join(parts, " ")
}

func (b *Brave) Search(ctx context.Context, req model.PipelineRequest) ([]model.Source, error) {
	if b.apiKey == "" {
		return nil, errors.New("brave search: missing api key")
	}
	query := BuildQuery(req)

	var results []model.Source
	err := resilience.Retry(ctx, "brave.search", b.retry, func() error {
		var err error
		results, err = b.fetch(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	ranked := Rank(results, b.count)
	b.logger.Info("search finished", "query", query, "results", len(results), "kept", len(ranked))
	return ranked, nil
}

func (b *Brave) fetch(ctx context.Context, query string) ([]model.Source, error) {
	endpoint, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("invalid search endpoint: %w", err))
	}
	fetchCount := b.count * 3
	if fetchCount > braveMaxCount {
		fetchCount = braveMaxCount
	}
	q := endpoint.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(fetchCount))
	endpoint.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, braveMaxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("brave web search failed (status %d)", resp.StatusCode)
		}
		err := errors.New(msg)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}

	var decoded braveResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, resilience.Permanent(errors.New("invalid brave web search response"))
	}

	out := make([]model.Source, 0, len(decoded.Web.Results))
	for _, item := range decoded.Web.Results {
		u := strings.TrimSpace(item.URL)
		if u == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = u
		}
		out = append(out, model.Source{
			URL:     u,
			Title:   title,
			Snippet: strings.TrimSpace(item.Description),
		})
	}
	return out, nil
}

// Rank de-duplicates by URL, orders open educational hosts first and PDF
// links last, and keeps at most limit sources. Order is stable within a tier.
func Rank(sources []model.Source, limit int) []model.Source {
	seen := make(map[string]struct{}, len(sources))
	tiers := make([][]model.Source, 3)
	for _, s := range sources {
		if _, ok := seen[s.URL]; ok {
			continue
		}
		seen[s.URL] = struct{}{}
		tiers[tier(s.URL)] = append(tiers[tier(s.URL)], s)
	}
	out := make([]model.Source, 0, len(sources))
	for _, t := range tiers {
		out = append(out, t...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func tier(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 1
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return 2
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range openDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return 0
		}
	}
	return 1
}

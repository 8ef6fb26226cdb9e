// Package cheese is the search collaborator: a deliberately slow, blocking
// lookup over a fixed catalogue of cheese names.
package cheese

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"cheesefinder/internal/domain"
)

//go:embed cheeses.txt
var catalogue string

// Names returns the built-in catalogue, one entry per cheese.
func Names() []string {
	var names []string
	sc := bufio.NewScanner(strings.NewReader(catalogue))
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Matcher selects the names matching query.
type Matcher func(query string, names []string) []string

// Contains keeps names containing query, ignoring case, in catalogue order.
func Contains(query string, names []string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	return out
}

// Fuzzy keeps names containing the characters of query in order, closest
// matches first.
func Fuzzy(query string, names []string) []string {
	ranks := fuzzy.RankFindFold(query, names)
	sort.Stable(ranks)
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out
}

// MatcherByName resolves "contains" or "fuzzy".
func MatcherByName(name string) (Matcher, error) {
	switch name {
	case "", "contains":
		return Contains, nil
	case "fuzzy":
		return Fuzzy, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMatcher, name)
	}
}

// Engine searches the catalogue.
type Engine struct {
	names      []string
	match      Matcher
	latency    time.Duration
	maxResults int
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithNames replaces the built-in catalogue.
func WithNames(names []string) Option {
	return func(e *Engine) error {
		if len(names) == 0 {
			return ErrNoNames
		}
		e.names = append([]string(nil), names...)
		return nil
	}
}

// WithMatcher selects the matching strategy by name.
func WithMatcher(name string) Option {
	return func(e *Engine) error {
		m, err := MatcherByName(name)
		if err != nil {
			return err
		}
		e.match = m
		return nil
	}
}

// WithLatency makes every search take at least d.
// Default is no added latency.
func WithLatency(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			d = 0
		}
		e.latency = d
		return nil
	}
}

// WithMaxResults caps the number of results. Zero means unlimited.
func WithMaxResults(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			n = 0
		}
		e.maxResults = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

// NewEngine creates an engine over the built-in catalogue.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		names:  Names(),
		match:  Contains,
		logger: zap.L().Named("cheese"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Search blocks for the configured latency, then returns every name
// matching query. A blank query matches nothing. Cancelling ctx abandons
// the search.
func (e *Engine) Search(ctx context.Context, query string) (domain.ResultSet, error) {
	start := time.Now()
	rs := domain.ResultSet{Query: query}

	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			e.logger.Debug("search abandoned", zap.String("query", query))
			return rs, fmt.Errorf("search %q: %w", query, ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return rs, fmt.Errorf("search %q: %w", query, err)
	}

	q := strings.TrimSpace(query)
	if q != "" {
		rs.Items = e.match(q, e.names)
	}
	if e.maxResults > 0 && len(rs.Items) > e.maxResults {
		rs.Items = rs.Items[:e.maxResults]
	}
	rs.Took = time.Since(start)

	e.logger.Debug("search finished",
		zap.String("query", query),
		zap.Int("results", len(rs.Items)),
		zap.Duration("took", rs.Took))
	return rs, nil
}

package suggest

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/synthscribe/synthscribe/ai/cache"
	"github.com/synthscribe/synthscribe/ai/llm"
	"github.com/synthscribe/synthscribe/experiment"
)

// ErrNoSuggestions is returned when the model reply contained no parseable
// suggestion blocks.
var ErrNoSuggestions = errors.New("suggest: no suggestions parsed from reply")

// Result carries the suggestions for one request along with where they
// came from.
type Result struct {
	Suggestions []MusicSuggestion
	// Variant is the prompt variant that produced the suggestions. Empty
	// when no experiment was active for the request.
	Variant   string
	FromCache bool
	Stats     *llm.CallStats
}

// Suggester generates music suggestions via an LLM. When an experiment is
// attached, each user is deterministically assigned a prompt variant and
// the resulting impression is recorded; a later thumbs-up or rating flows
// back through RecordSuccess and RecordFeedback.
type Suggester struct {
	llm     llm.Service
	cache   *cache.LRU[string, []MusicSuggestion]
	metrics Recorder

	store          *experiment.Store
	experimentName string
}

// Recorder counts cache outcomes for the suggestion cache.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithCache enables response caching with the given capacity and TTL.
func WithCache(capacity int, ttl time.Duration) Option {
	return func(s *Suggester) {
		s.cache = cache.New[string, []MusicSuggestion](capacity, ttl)
	}
}

// WithMetrics attaches a cache outcome recorder (e.g. a Prometheus
// exporter). Only meaningful together with WithCache.
func WithMetrics(r Recorder) Option {
	return func(s *Suggester) {
		s.metrics = r
	}
}

// WithExperiment routes prompt selection through the named experiment.
func WithExperiment(store *experiment.Store, name string) Option {
	return func(s *Suggester) {
		s.store = store
		s.experimentName = name
	}
}

// New creates a Suggester backed by svc.
func New(svc llm.Service, opts ...Option) *Suggester {
	s := &Suggester{llm: svc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest returns music suggestions for a mood description. genreCounts is
// the user's recent genre history, used as context by persona prompts; it
// may be nil.
func (s *Suggester) Suggest(ctx context.Context, userID, description string, genreCounts map[string]int) (*Result, error) {
	template := defaultTemplate
	variant := ""

	if s.store != nil && s.experimentName != "" {
		assignment, err := s.store.Assign(ctx, s.experimentName, userID)
		if err != nil {
			return nil, errors.Wrap(err, "assign prompt variant")
		}
		if assignment.Assigned {
			variant = assignment.Variant
			if tpl, ok := assignment.Config["template"].(string); ok && tpl != "" {
				template = tpl
			}
		} else {
			slog.Debug("prompt experiment skipped",
				"experiment", s.experimentName,
				"reason", assignment.Reason)
		}
	}

	cacheKey := variant + "\x00" + description
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			if s.metrics != nil {
				s.metrics.RecordCacheHit()
			}
			slog.Debug("suggestion cache hit", "variant", variant, "description", description)
			return &Result{Suggestions: cached, Variant: variant, FromCache: true}, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
	}

	prompt := renderPrompt(template, description, HistoryContext(genreCounts))
	reply, stats, err := s.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, errors.Wrap(err, "llm chat")
	}

	suggestions := Parse(reply)
	if len(suggestions) == 0 {
		return nil, ErrNoSuggestions
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, suggestions)
	}
	slog.Info("suggestions generated",
		"user_id", userID,
		"variant", variant,
		"count", len(suggestions))

	return &Result{Suggestions: suggestions, Variant: variant, Stats: stats}, nil
}

// RecordSuccess marks the user's assigned variant as converted, typically
// when a suggestion is saved to favorites.
func (s *Suggester) RecordSuccess(ctx context.Context, userID string) error {
	if s.store == nil || s.experimentName == "" {
		return nil
	}
	variant := s.store.PeekVariant(ctx, s.experimentName, userID)
	if variant == "" {
		return nil
	}
	return s.store.RecordSuccess(ctx, s.experimentName, variant)
}

// RecordFeedback attaches a rating to the user's assigned variant.
func (s *Suggester) RecordFeedback(ctx context.Context, userID string, score float64) error {
	if s.store == nil || s.experimentName == "" {
		return nil
	}
	variant := s.store.PeekVariant(ctx, s.experimentName, userID)
	if variant == "" {
		return nil
	}
	return s.store.RecordFeedback(ctx, s.experimentName, variant, score)
}

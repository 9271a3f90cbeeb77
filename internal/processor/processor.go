package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clobrano/briefbot/internal/metrics"
	"github.com/clobrano/briefbot/internal/models"
)

var (
	// ErrNoURL means the request text contains no URL. It is not a failure.
	ErrNoURL = errors.New("no URL in text")
	// ErrNotFound means the selected strategy found nothing to load, such as a
	// video with neither captions nor a stream. It is not a failure.
	ErrNotFound = errors.New("no content found")
	// ErrLoadFailed wraps every acquisition failure.
	ErrLoadFailed = errors.New("failed to load URL")
)

// IsNothingToDo reports whether err means the request should be dropped
// silently rather than reported as a failure.
func IsNothingToDo(err error) bool {
	return errors.Is(err, ErrNoURL) || errors.Is(err, ErrNotFound)
}

type Options struct {
	Normalizer *Normalizer
	Classifier *Classifier
	Strategies []Strategy
	// Timeout bounds one acquisition on top of the caller's context. Zero
	// means no extra bound.
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Pipeline turns free text into a plain-text Document: extract the URL,
// normalize it, classify it, acquire it with the matching strategy and reduce
// the result. It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	normalizer *Normalizer
	classifier *Classifier
	strategies map[models.ContentKind]Strategy
	timeout    time.Duration
	metrics    *metrics.Metrics
}

func New(opts Options) *Pipeline {
	strategies := make(map[models.ContentKind]Strategy, len(opts.Strategies))
	for _, s := range opts.Strategies {
		strategies[s.Kind()] = s
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = NewClassifier(ClassifierOptions{})
	}
	return &Pipeline{
		normalizer: opts.Normalizer,
		classifier: classifier,
		strategies: strategies,
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
	}
}

// Load returns the document behind the first URL in text.
func (p *Pipeline) Load(ctx context.Context, text string) (models.Document, error) {
	raw, ok := ExtractURL(text)
	if !ok {
		return models.Document{}, ErrNoURL
	}
	source, err := models.ParseSourceURL(raw)
	if err != nil {
		log.Warn().Err(err).Str("url", raw).Msg("failed to parse URL")
		return models.Document{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return p.LoadURL(ctx, source)
}

func (p *Pipeline) LoadURL(ctx context.Context, source models.SourceURL) (models.Document, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	normalized := p.normalizer.Normalize(source)
	if normalized.String() != source.String() {
		log.Debug().Str("from", source.String()).Str("to", normalized.String()).Msg("normalized URL")
	}

	kind := p.classifier.Classify(ctx, normalized)
	logger := log.With().Str("url", normalized.String()).Str("kind", string(kind)).Logger()
	logger.Info().Msg("loading URL")

	strategy, ok := p.strategies[kind]
	if !ok {
		return models.Document{}, fmt.Errorf("%w: no strategy for %s content", ErrNotFound, kind)
	}

	start := time.Now()
	res := strategy.Acquire(ctx, normalized)
	if res.Outcome == models.OutcomeFailed && ctx.Err() != nil && !errors.Is(res.Err, ctx.Err()) {
		res.Err = fmt.Errorf("%w: %w", res.Err, ctx.Err())
	}
	p.metrics.ObserveAcquisition(string(kind), res.Outcome.String(), time.Since(start))

	switch res.Outcome {
	case models.OutcomeSuccess:
		if res.Document.IsEmpty() {
			logger.Warn().Msg("no usable content extracted")
			return models.Document{}, fmt.Errorf("%w: no usable content", ErrLoadFailed)
		}
		logger.Info().Int("length", len(res.Document.Text)).Int("fragments", res.Document.Fragments).Msg("loaded URL")
		return res.Document, nil
	case models.OutcomeDeclined:
		logger.Info().Str("reason", res.Reason).Msg("nothing to load")
		return models.Document{}, fmt.Errorf("%w: %s", ErrNotFound, res.Reason)
	default:
		logger.Error().Err(res.Err).Msg("failed to load URL")
		return models.Document{}, fmt.Errorf("%w: %w", ErrLoadFailed, res.Err)
	}
}

// Package recommender ties feature extraction, the inference provider and
// the response normalizer into one recommendation flow.
package recommender

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"github.com/socialchef/moodbite/internal/catalog"
	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/logger"
	"github.com/socialchef/moodbite/internal/metrics"
	"github.com/socialchef/moodbite/internal/recommendation"
	"github.com/socialchef/moodbite/internal/services/ai"
	"github.com/socialchef/moodbite/internal/services/features"
	"github.com/socialchef/moodbite/internal/services/inference"
)

// Request sources, used as the metric and log label.
const (
	SourceFeatures = "features"
	SourceVideo    = "video"
	SourceUpload   = "upload"
)

// Extractor derives features from a video.
type Extractor interface {
	Extract(ctx context.Context, locator string) (*features.Features, error)
	ExtractUpload(ctx context.Context, filename string, r io.Reader) (*features.Features, error)
}

// Service produces normalized recommendations. It is safe for concurrent use.
type Service struct {
	provider  inference.Provider
	extractor Extractor
	prompts   map[recommendation.ContextShape]string
}

// New builds the system prompts for both context shapes up front so a bad
// catalog fails at startup rather than on the first request.
func New(provider inference.Provider, extractor Extractor, c *catalog.Catalog) (*Service, error) {
	prompts := make(map[recommendation.ContextShape]string, 2)
	for _, shape := range []recommendation.ContextShape{recommendation.ShapeMapping, recommendation.ShapePositional} {
		prompt, err := ai.BuildRecommendationPrompt(c, shape)
		if err != nil {
			return nil, err
		}
		prompts[shape] = prompt
	}
	return &Service{provider: provider, extractor: extractor, prompts: prompts}, nil
}

// Recommend runs inference on already extracted features.
func (s *Service) Recommend(ctx context.Context, input recommendation.Input) (recommendation.Recommendation, error) {
	return s.recommend(ctx, SourceFeatures, input)
}

// RecommendVideo extracts features from a video URL and recommends on them.
func (s *Service) RecommendVideo(ctx context.Context, locator string) (recommendation.Recommendation, *features.Features, error) {
	f, err := s.extract(ctx, SourceVideo, func() (*features.Features, error) {
		return s.extractor.Extract(ctx, locator)
	})
	if err != nil {
		return recommendation.Recommendation{}, nil, err
	}
	rec, err := s.recommend(ctx, SourceVideo, f.Input())
	return rec, f, err
}

// RecommendUpload is RecommendVideo for an uploaded file.
func (s *Service) RecommendUpload(ctx context.Context, filename string, r io.Reader) (recommendation.Recommendation, *features.Features, error) {
	f, err := s.extract(ctx, SourceUpload, func() (*features.Features, error) {
		return s.extractor.ExtractUpload(ctx, filename, r)
	})
	if err != nil {
		return recommendation.Recommendation{}, nil, err
	}
	rec, err := s.recommend(ctx, SourceUpload, f.Input())
	return rec, f, err
}

func (s *Service) extract(ctx context.Context, source string, run func() (*features.Features, error)) (*features.Features, error) {
	if s.extractor == nil {
		return nil, errors.NewConfigurationError("feature extraction is not configured", "FEATURES_DISABLED")
	}

	startTime := time.Now()
	f, err := run()
	if err != nil {
		err = toAppError(err)
		metrics.RecordRecommendation(ctx, source, startTime, err)
		slog.ErrorContext(ctx, "Feature extraction failed",
			"source", source,
			"error", err,
			logger.Since(startTime),
			logger.WithTraceContext(ctx))
		return nil, err
	}

	slog.InfoContext(ctx, "Features extracted",
		"source", source,
		"valence", f.Vector.Valence(),
		"arousal", f.Vector.Arousal(),
		"dominance", f.Vector.Dominance(),
		"intents", len(f.Intents),
		logger.Since(startTime))
	return f, nil
}

func (s *Service) recommend(ctx context.Context, source string, input recommendation.Input) (rec recommendation.Recommendation, err error) {
	startTime := time.Now()
	defer func() {
		metrics.RecordRecommendation(ctx, source, startTime, err)
		if err != nil {
			slog.ErrorContext(ctx, "Recommendation failed",
				"source", source,
				"provider", s.provider.Name(),
				"error", err,
				logger.Since(startTime),
				logger.WithTraceContext(ctx))
			return
		}
		slog.InfoContext(ctx, "Recommendation generated",
			"source", source,
			"provider", s.provider.Name(),
			"emotion", rec.Emotion,
			"products", len(rec.Products),
			"combos", len(rec.Combos),
			logger.Since(startTime),
			logger.WithTraceContext(ctx))
	}()

	message, err := input.UpstreamMessage()
	if err != nil {
		return rec, errors.NewInternalError("failed to encode inference input", "INPUT_ENCODING", err)
	}

	content, err := s.provider.Recommend(ctx, inference.Prompt{
		System: s.prompts[input.Context.Shape],
		User:   message,
	})
	if err != nil {
		return rec, toAppError(err)
	}

	raw, err := recommendation.ParsePayload(content)
	if err != nil {
		return rec, err
	}
	if !recommendation.Recognized(raw) {
		return rec, errors.NewUpstreamMalformedError(
			"inference response has no recommendation fields", "UNRECOGNIZED_PAYLOAD", nil)
	}

	return recommendation.Normalize(raw), nil
}

// toAppError maps anything that escaped the clients onto the error taxonomy.
func toAppError(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NewUpstreamUnavailableError("upstream call did not complete", "UPSTREAM_TIMEOUT", err)
	}
	return errors.NewInternalError("recommendation failed", "INTERNAL_ERROR", err)
}

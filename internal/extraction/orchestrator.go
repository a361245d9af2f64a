package extraction

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"docintake/internal/domain"
	"docintake/internal/port"
)

// DefaultConfidenceThreshold is the confidence below which the next
// strategy is tried and the document is routed to review.
const DefaultConfidenceThreshold = 0.85

// ErrNoStrategy is returned when no strategy is eligible for a run.
var ErrNoStrategy = errors.New("no extraction strategy available")

// Fallback records one hand-off from a low-confidence result to the next
// strategy.
type Fallback struct {
	FromExtractor domain.ExtractorTag
	Confidence    float64
}

// Outcome is the orchestrator's decision for one document.
type Outcome struct {
	Result    *port.ExtractionResult
	Forced    bool
	Fallbacks []Fallback
}

// Orchestrator runs extraction strategies in order until one is confident
// enough, keeping the most confident result.
type Orchestrator struct {
	strategies []Strategy
	threshold  float64
	detector   *TypeDetector
	observer   port.PipelineObserver
	logger     *zap.Logger
}

// NewOrchestrator creates an Orchestrator. Strategies are tried in the order
// given; a threshold outside (0,1] falls back to DefaultConfidenceThreshold.
func NewOrchestrator(strategies []Strategy, threshold float64, detector *TypeDetector, observer port.PipelineObserver, logger *zap.Logger) *Orchestrator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		strategies: strategies,
		threshold:  threshold,
		detector:   detector,
		observer:   observer,
		logger:     logger,
	}
}

// Threshold returns the configured confidence threshold.
func (o *Orchestrator) Threshold() float64 {
	return o.threshold
}

// Extract runs the strategy chain over src. With forceSemantic set,
// structured strategies are skipped and the first semantic result stands
// unconditionally. Any strategy error ends the chain and is returned.
func (o *Orchestrator) Extract(ctx context.Context, src *Source, forceSemantic bool) (*Outcome, error) {
	out := &Outcome{Forced: forceSemantic}
	var best *port.ExtractionResult

	for _, s := range o.strategies {
		if forceSemantic && s.Kind() == KindStructured {
			continue
		}
		if best != nil {
			if best.Confidence >= o.threshold {
				break
			}
			out.Fallbacks = append(out.Fallbacks, Fallback{FromExtractor: best.Extractor, Confidence: best.Confidence})
			if o.observer != nil {
				o.observer.ExtractionFallback()
			}
			o.logger.Info("extraction.Orchestrator: low confidence, falling back",
				zap.String("filename", src.Filename),
				zap.String("extractor", string(best.Extractor)),
				zap.Float64("confidence", best.Confidence),
				zap.String("next", s.Kind().String()),
			)
		}

		res, err := s.Extract(ctx, src)
		if err != nil {
			return nil, err
		}
		res.Confidence = domain.ClampConfidence(res.Confidence)
		if res.Fields == nil {
			res.Fields = domain.Fields{}
		}

		if best == nil || res.Confidence > best.Confidence {
			best = res
		}
	}

	if best == nil {
		return nil, ErrNoStrategy
	}
	out.Result = best
	return out, nil
}

// DetectType resolves the document type for src.
func (o *Orchestrator) DetectType(ctx context.Context, src *Source) (domain.DocumentType, error) {
	return o.detector.Detect(ctx, src)
}

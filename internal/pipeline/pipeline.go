// Package pipeline drives extraction, enrichment and persistence of question/answer pairs, one pair at a time.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/learnlog/internal/archive"
	"github.com/cchalm/learnlog/internal/logger"
	"github.com/cchalm/learnlog/internal/metadata"
	"github.com/cchalm/learnlog/internal/record"
	"github.com/cchalm/learnlog/internal/telemetry"
)

// DefaultDelay is the pause after each successfully persisted pair
const DefaultDelay = 500 * time.Millisecond

// logQuestionLength is the number of characters of a question included in log lines
const logQuestionLength = 40

type Enricher interface {
	Enrich(ctx context.Context, question, answer string) metadata.Enrichment
}

type RecordWriter interface {
	Write(ctx context.Context, question, answer string, meta metadata.Metadata) record.WriteResult
}

type Config struct {
	// Delay is waited after a pair is persisted successfully, before the next pair. Zero disables it.
	Delay   time.Duration
	Extract archive.ExtractOptions
	// OnOutcome, if set, is called with each outcome as soon as it is known
	OnOutcome func(Outcome)
	RunID     string
}

// Outcome reports what happened to one pair. Err is nil only when the record and all of its overflow blocks were
// persisted.
type Outcome struct {
	Index          int
	ConversationID string
	Question       string
	Title          string
	RecordID       string
	OverflowBlocks int
	// MetadataErr is set when fallback metadata was used. It does not make the outcome a failure.
	MetadataErr error
	Err         error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Partial reports whether the record was created but some overflow blocks are missing
func (o Outcome) Partial() bool {
	var partial *record.PartialWriteError
	return errors.As(o.Err, &partial)
}

type Pipeline struct {
	enricher Enricher
	writer   RecordWriter
	config   Config
	log      *logger.Logger
	tracer   trace.Tracer

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a pipeline. log and tracer may be nil.
func New(enricher Enricher, writer RecordWriter, config Config, log *logger.Logger, tracer trace.Tracer) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	if config.RunID != "" {
		log = log.With("run_id", config.RunID)
	}
	return &Pipeline{
		enricher: enricher,
		writer:   writer,
		config:   config,
		log:      log,
		tracer:   tracer,
		sleep:    sleepContext,
	}
}

// Run extracts the pairs of arc and processes them
func (p *Pipeline) Run(ctx context.Context, arc *archive.Archive) []Outcome {
	for _, problem := range arc.Problems {
		p.log.Warn("skipping malformed conversation", "problem", problem.String())
	}
	pairs := archive.Extract(arc, p.config.Extract)
	p.log.Info("extracted pairs", "conversations", len(arc.Conversations), "pairs", len(pairs))
	return p.Process(ctx, pairs)
}

// Process enriches and persists each pair in order and returns exactly one outcome per pair. A failed pair does
// not stop the ones after it. Once ctx is done no further pairs are started and each remaining pair gets an
// outcome carrying the context error.
func (p *Pipeline) Process(ctx context.Context, pairs []archive.QAPair) []Outcome {
	ctx, span := p.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		telemetry.AttrRunID.String(p.config.RunID),
		attribute.Int("learnlog.pairs", len(pairs)),
	))
	defer span.End()

	outcomes := make([]Outcome, 0, len(pairs))
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, p.report(Outcome{
				Index:          i,
				ConversationID: pair.ConversationID,
				Question:       pair.Question,
				Err:            err,
			}))
			continue
		}

		outcome := p.report(p.processOne(ctx, i, pair))
		outcomes = append(outcomes, outcome)

		if outcome.Succeeded() && i < len(pairs)-1 {
			// Cancellation during the wait is picked up by the next iteration
			_ = p.sleep(ctx, p.config.Delay)
		}
	}

	summary := Summarize(outcomes)
	span.SetAttributes(
		attribute.Int("learnlog.succeeded", summary.Succeeded),
		attribute.Int("learnlog.failed", summary.Failed+summary.Partial),
	)
	return outcomes
}

func (p *Pipeline) processOne(ctx context.Context, index int, pair archive.QAPair) Outcome {
	ctx, span := p.tracer.Start(ctx, "sync.item", trace.WithAttributes(
		telemetry.AttrItemIndex.Int(index),
		telemetry.AttrConversationID.String(pair.ConversationID),
	))
	defer span.End()

	outcome := Outcome{
		Index:          index,
		ConversationID: pair.ConversationID,
		Question:       pair.Question,
	}

	enrichment := p.enricher.Enrich(ctx, pair.Question, pair.Answer)
	outcome.Title = enrichment.Metadata.Title
	outcome.MetadataErr = enrichment.Err
	span.SetAttributes(telemetry.AttrFallbackMeta.Bool(enrichment.Err != nil))
	if enrichment.Err != nil {
		p.log.Warn("metadata generation failed, using fallback",
			"index", index, "question", shorten(pair.Question), "error", enrichment.Err)
	}

	result := p.writer.Write(ctx, pair.Question, pair.Answer, enrichment.Metadata)
	outcome.RecordID = result.RecordID
	outcome.OverflowBlocks = result.OverflowBlocks
	outcome.Err = result.Err
	span.SetAttributes(
		telemetry.AttrRecordID.String(result.RecordID),
		telemetry.AttrOverflowBlocks.Int(result.OverflowBlocks),
	)

	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "write failed")
		p.log.Error("failed to persist pair",
			"index", index, "question", shorten(pair.Question), "record_id", result.RecordID, "error", result.Err)
		return outcome
	}
	p.log.Debug("persisted pair", "index", index, "record_id", result.RecordID, "overflow_blocks", result.OverflowBlocks)
	return outcome
}

func (p *Pipeline) report(o Outcome) Outcome {
	if p.config.OnOutcome != nil {
		p.config.OnOutcome(o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shorten returns the first logQuestionLength characters of s
func shorten(s string) string {
	r := []rune(s)
	if len(r) <= logQuestionLength {
		return s
	}
	return string(r[:logQuestionLength])
}

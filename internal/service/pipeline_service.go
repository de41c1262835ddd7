package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"logsight-backend/config"
	"logsight-backend/internal/formatter"
	"logsight-backend/internal/geoip"
	"logsight-backend/internal/kafka"
	"logsight-backend/internal/metrics"
	"logsight-backend/internal/model"
	"logsight-backend/internal/parser"
)

var (
	// ErrEmptyInput means the upload had no non-empty lines.
	ErrEmptyInput = errors.New("input contains no non-empty lines")
	// ErrUnknownLogType means the first line matched no known grammar.
	ErrUnknownLogType = errors.New("first line matches no supported log format")
)

// RunResult is the finished document plus the counts surfaced to the caller.
type RunResult struct {
	Document     []byte
	Extension    string
	ContentType  string
	EventsParsed int
	UniqueIPs    int
}

// PipelineService runs the parse, deduplicate, enrich, merge pipeline over
// one uploaded log text.
type PipelineService interface {
	Run(ctx context.Context, rawText string, encoding model.OutputEncoding) (*RunResult, error)
}

type pipelineService struct {
	geo         geoip.Client
	producer    kafka.RecordProducer
	metrics     *metrics.Metrics
	lookupLimit int
}

func NewPipelineService(
	cfg *config.Config,
	geo geoip.Client,
	producer kafka.RecordProducer,
	m *metrics.Metrics,
) PipelineService {
	return &pipelineService{
		geo:         geo,
		producer:    producer,
		metrics:     m,
		lookupLimit: cfg.Pipeline.LookupConcurrency,
	}
}

func (s *pipelineService) Run(ctx context.Context, rawText string, encoding model.OutputEncoding) (*RunResult, error) {
	startTime := time.Now()

	lines := splitNonEmptyLines(rawText)
	if len(lines) == 0 {
		s.metrics.IncRunsTotal("empty_input")
		return nil, ErrEmptyInput
	}

	logType := parser.Detect(lines[0])
	if logType == model.LogTypeUnknown {
		s.metrics.IncRunsTotal("unknown_log_type")
		return nil, ErrUnknownLogType
	}
	log.Debug().Stringer("log_type", logType).Int("line_count", len(lines)).Msg("Detected log type")

	lineParser, err := parser.ForType(logType)
	if err != nil {
		s.metrics.IncRunsTotal("error")
		return nil, fmt.Errorf("failed to build line parser: %w", err)
	}

	// Lines matching no sub-pattern are dropped, not an error.
	var events []*model.Record
	for _, line := range lines {
		if event := lineParser.Parse(line); event != nil {
			events = append(events, event)
		}
	}
	s.metrics.EventsParsed.Add(float64(len(events)))
	s.metrics.LinesDropped.Add(float64(len(lines) - len(events)))

	keys := parser.CollectKeys(events)
	log.Debug().Int("event_count", len(events)).Int("unique_keys", len(keys)).Msg("Collected enrichment keys")

	// Fan out one lookup per unique key and join before any formatting.
	// Lookup absorbs its own failures, so the group never sees an error.
	group, groupCtx := errgroup.WithContext(ctx)
	if s.lookupLimit > 0 {
		group.SetLimit(s.lookupLimit)
	}
	for _, key := range keys {
		key := key
		group.Go(func() error {
			s.geo.Lookup(groupCtx, key)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.metrics.IncRunsTotal("error")
		return nil, fmt.Errorf("enrichment join failed: %w", err)
	}

	// Every lookup is cached now; merging pulls results without further
	// network calls, keeping output order tied to source line order.
	merged := make([]*model.Record, len(events))
	for i, event := range events {
		merged[i] = s.mergeEnrichment(ctx, event)
	}

	docFormatter, err := formatter.ForEncoding(encoding)
	if err != nil {
		s.metrics.IncRunsTotal("error")
		return nil, err
	}
	document, err := docFormatter.Format(merged)
	if err != nil {
		s.metrics.IncRunsTotal("error")
		return nil, fmt.Errorf("failed to format document: %w", err)
	}

	if s.producer != nil {
		if err := s.producer.Publish(ctx, merged); err != nil {
			log.Error().Err(err).Msg("Failed to publish merged records")
		}
	}

	duration := time.Since(startTime)
	s.metrics.IncRunsTotal("success")
	s.metrics.RunDuration.Observe(duration.Seconds())
	log.Info().
		Stringer("log_type", logType).
		Int("lines", len(lines)).
		Int("events_parsed", len(events)).
		Int("unique_ips", len(keys)).
		Stringer("encoding", encoding).
		Dur("duration", duration).
		Msg("Finished enrichment pipeline run")

	return &RunResult{
		Document:     document,
		Extension:    encoding.Extension(),
		ContentType:  encoding.ContentType(),
		EventsParsed: len(events),
		UniqueIPs:    len(keys),
	}, nil
}

// mergeEnrichment overlays the cached enrichment onto a copy of the event.
// Enrichment fields win on name collision; the original event is untouched.
// Events without a usable src_ip pass through unchanged.
func (s *pipelineService) mergeEnrichment(ctx context.Context, event *model.Record) *model.Record {
	ip, ok := event.Get(parser.FieldSrcIP)
	if !ok || ip == "" || ip == "-" {
		return event
	}
	enrichment := s.geo.Lookup(ctx, ip)
	merged := event.Clone()
	for _, field := range enrichment.Fields() {
		merged.Set(field.Key, field.Value)
	}
	return merged
}

func splitNonEmptyLines(rawText string) []string {
	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

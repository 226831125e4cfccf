// Package aggregator orchestrates the fan-out across all platform
// adapters and the validate/deduplicate pipeline on the merged pool.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/metrics"
	"github.com/lysyi3m/event-comb/app/scrapers"
)

// EventSink is the persistence collaborator. It receives the deduplicated
// candidate list and upserts by (source_platform, external_id).
type EventSink interface {
	UpsertEvent(ctx context.Context, e event.StandardizedEvent) error
}

type Aggregator struct {
	scrapers     []scrapers.Scraper
	validator    *event.Validator
	deduplicator *event.Deduplicator
	sink         EventSink
}

func New(adapters []scrapers.Scraper, validator *event.Validator, deduplicator *event.Deduplicator, sink EventSink) *Aggregator {
	return &Aggregator{
		scrapers:     adapters,
		validator:    validator,
		deduplicator: deduplicator,
		sink:         sink,
	}
}

// Run fans out to every adapter, waits for all of them to settle, and
// reduces the merged pool through validation and deduplication. It never
// returns an error and never panics: every failure is captured as data in
// the result.
func (a *Aggregator) Run(ctx context.Context, cfg event.FetchConfig) event.AggregatorResult {
	start := time.Now()
	result := event.AggregatorResult{
		RunID:           uuid.NewString(),
		PlatformResults: make([]event.PlatformFetchResult, len(a.scrapers)),
		AllEvents:       []event.StandardizedEvent{},
		Errors:          []string{},
		ByPlatform:      make(map[string]int),
		ByCategory:      make(map[string]int),
		ByCity:          make(map[string]int),
	}

	slog.Info("Harvest started", "run_id", result.RunID, "city", cfg.City, "limit", cfg.Limit, "platforms", len(a.scrapers))

	var wg sync.WaitGroup
	for i, scraper := range a.scrapers {
		wg.Add(1)
		go func(i int, scraper scrapers.Scraper) {
			defer wg.Done()
			result.PlatformResults[i] = a.settle(ctx, scraper, cfg)
		}(i, scraper)
	}
	wg.Wait()

	var pool []event.StandardizedEvent
	for _, pr := range result.PlatformResults {
		if pr.Success {
			pool = append(pool, pr.Events...)
		} else {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", pr.Platform, pr.Error))
		}
	}

	validated := a.validate(ctx, pool, cfg.FullValidation)

	deduped, removed := a.deduplicator.Run(validated)
	if removed > 0 {
		metrics.DuplicatesRemovedTotal.Add(float64(removed))
	}

	result.AllEvents = deduped
	result.TotalEvents = len(deduped)
	result.Success = result.TotalEvents > 0
	a.computeStats(&result)

	a.persist(ctx, deduped)

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	metrics.HarvestRunsTotal.WithLabelValues(outcome).Inc()

	slog.Info("Harvest completed",
		"run_id", result.RunID,
		"duration", time.Since(start).String(),
		"scraped", len(pool),
		"validated", len(validated),
		"duplicates_removed", removed,
		"total", result.TotalEvents,
		"failed_platforms", len(result.Errors))

	return result
}

// settle invokes one adapter and guarantees a terminal result even if the
// adapter panics. A single platform must never corrupt its siblings.
func (a *Aggregator) settle(ctx context.Context, scraper scrapers.Scraper, cfg event.FetchConfig) (result event.PlatformFetchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Adapter panic recovered", "platform", scraper.Platform(), "panic", r)
			result = event.PlatformFetchResult{
				Platform:  scraper.Platform(),
				Success:   false,
				Events:    []event.StandardizedEvent{},
				Error:     fmt.Sprintf("adapter panic: %v", r),
				FetchedAt: time.Now(),
			}
		}
	}()

	return scraper.Fetch(ctx, cfg)
}

// validate sanitizes every candidate independently; hard failures drop the
// record, warnings keep it flagged.
func (a *Aggregator) validate(ctx context.Context, pool []event.StandardizedEvent, full bool) []event.StandardizedEvent {
	validated := make([]event.StandardizedEvent, 0, len(pool))

	for _, candidate := range pool {
		var vr event.ValidationResult
		if full {
			vr = a.validator.CheckFull(ctx, candidate)
		} else {
			vr = a.validator.Check(candidate)
		}

		if !vr.IsValid {
			metrics.ValidationRejectsTotal.Inc()
			slog.Debug("Candidate rejected", "platform", candidate.SourcePlatform, "external_id", candidate.ExternalID, "errors", vr.Errors)
			continue
		}
		if len(vr.Warnings) > 0 {
			metrics.ValidationWarningsTotal.Add(float64(len(vr.Warnings)))
			slog.Debug("Candidate retained with warnings", "platform", candidate.SourcePlatform, "external_id", candidate.ExternalID, "warnings", vr.Warnings)
		}

		validated = append(validated, vr.Sanitized)
	}

	return validated
}

func (a *Aggregator) computeStats(result *event.AggregatorResult) {
	for _, e := range result.AllEvents {
		result.ByPlatform[string(e.SourcePlatform)]++
		result.ByCity[e.City]++
		if e.Category != "" {
			result.ByCategory[e.Category]++
		}
	}
}

// persist hands the clean list to the persistence collaborator. Storage
// failures are logged, never fatal to the run.
func (a *Aggregator) persist(ctx context.Context, events []event.StandardizedEvent) {
	if a.sink == nil {
		return
	}

	stored := 0
	for _, e := range events {
		if err := a.sink.UpsertEvent(ctx, e); err != nil {
			slog.Warn("Failed to store event", "platform", e.SourcePlatform, "external_id", e.ExternalID, "error", err)
			continue
		}
		stored++
	}

	if len(events) > 0 {
		slog.Info("Events stored", "stored", stored, "total", len(events))
	}
}

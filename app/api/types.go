package api

import (
	"context"

	"github.com/lysyi3m/event-comb/app/aggregator"
	"github.com/lysyi3m/event-comb/app/database"
	"github.com/lysyi3m/event-comb/app/event"
)

type HarvesterInterface interface {
	Run(ctx context.Context, cfg event.FetchConfig) event.AggregatorResult
}

var _ HarvesterInterface = (*aggregator.Aggregator)(nil)

type Handler struct {
	harvester    HarvesterInterface
	repo         database.EventRepository
	defaultCity  string
	defaultLimit int
	fullDefault  bool
}

type harvestRequest struct {
	City           string `json:"city"`
	Limit          int    `json:"limit"`
	FullValidation *bool  `json:"full_validation"`
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BGGRequestsTotal counts upstream BGG calls by outcome: ok, queued, error.
	BGGRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bgg_gateway_bgg_requests_total",
		Help: "The total number of BGG XML API calls by outcome",
	}, []string{"outcome"})

	// GameLookupsTotal counts game lookups by the source that served them.
	GameLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bgg_gateway_game_lookups_total",
		Help: "The total number of game lookups by source",
	}, []string{"source"})

	CodesIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bgg_gateway_verification_codes_issued_total",
		Help: "The total number of short verification code issuances by status",
	}, []string{"status"})

	CodesRedeemedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bgg_gateway_verification_codes_redeemed_total",
		Help: "The total number of short verification code redemptions by outcome",
	}, []string{"outcome"})

	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bgg_gateway_http_responses_total",
		Help: "The total number of HTTP responses by route and status code",
	}, []string{"route", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bgg_gateway_http_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

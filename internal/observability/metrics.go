package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "trips_created_total", Help: "Trips created"})
	TripsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "trips_accepted_total", Help: "Trips accepted by a driver"})
	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "accept_conflicts_total", Help: "Accept attempts that lost the race"})
	OffersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "offers_created_total", Help: "Price offers created"})
	OffersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "offers_expired_total", Help: "Price offers lazily expired"})
	LocationReports = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "location_reports_total", Help: "Driver location reports ingested"})
	CandidatesSurfaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "candidates_surfaced_total", Help: "Advisory trip candidates surfaced to drivers"})

	MatchEvaluation = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dispatch", Name: "match_evaluation_seconds",
		Help: "Time spent evaluating the pending-trip window per location report",
		Buckets: prometheus.DefBuckets})
)

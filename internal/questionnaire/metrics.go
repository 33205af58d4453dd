package questionnaire

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questionnaire_submissions_total",
			Help: "Total number of questionnaire submissions",
		},
		[]string{"type"},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questionnaire_compatibility_scores",
			Help:    "Distribution of pairwise compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	matchQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questionnaire_match_queries_total",
			Help: "Total number of candidate ranking queries",
		},
	)

	completeProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "questionnaire_complete_profiles",
			Help: "Number of complete questionnaire responses",
		},
	)

	scoreCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questionnaire_score_cache_requests_total",
			Help: "Pairwise score cache lookups",
		},
		[]string{"result"},
	)
)

func RecordSubmission(t QuestionnaireType) {
	submissionsTotal.WithLabelValues(string(t)).Inc()
}

func RecordCompatibilityScore(score int) {
	compatibilityScores.Observe(float64(score))
}

func RecordMatchQuery() {
	matchQueriesTotal.Inc()
}

func SetCompleteProfiles(count int64) {
	completeProfiles.Set(float64(count))
}

func recordCacheLookup(hit bool) {
	if hit {
		scoreCacheHits.WithLabelValues("hit").Inc()
	} else {
		scoreCacheHits.WithLabelValues("miss").Inc()
	}
}

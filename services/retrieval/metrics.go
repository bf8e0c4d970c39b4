package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetrievalsTotal counts Retrieve calls by the path that produced hits.
	// Labels: path (vector, fallback), reason (ok, no_credential,
	// index_missing, list_failed, embedding_failed, query_failed, panic)
	RetrievalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total number of retrievals by path and fallback reason",
		},
		[]string{"path", "reason"},
	)

	// RetrievalHits observes how many hits each retrieval returned.
	RetrievalHits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "retrieval",
			Name:      "hits",
			Help:      "Number of hits returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
		[]string{"path"},
	)

	// IndexBuildRecords counts records handled by index builds.
	// Labels: result (embedded, skipped)
	IndexBuildRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "index_build",
			Name:      "records_total",
			Help:      "Total number of knowledge base entries processed by index builds",
		},
		[]string{"result"},
	)
)

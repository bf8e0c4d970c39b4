package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

var (
	// CompletionsTotal counts answer pipeline runs.
	// Labels: result (ok, rejected, failed)
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "answers_total",
			Help:      "Total number of chat questions by outcome",
		},
		[]string{"result"},
	)

	CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "answer_duration_seconds",
			Help:      "Time to answer a question, retrieval included",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

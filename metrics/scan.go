package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTextPart = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscan_text_parts_total",
			Help: "Text parts selected for analysis.",
		},
		[]string{
			"kind", // html, plain
		},
	)

	metricGtube = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailscan_gtube_total",
			Help: "Messages short-circuited by the gtube test signature.",
		},
	)

	metricDegrade = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscan_degrade_total",
			Help: "Recoverable analysis failures that degraded to a lesser result.",
		},
		[]string{
			"stage", // charset, stem, receivedparse
		},
	)

	metricDistance = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscan_parts_distance_total",
			Help: "Outcomes of near-duplicate distance between alternative text parts.",
		},
		[]string{
			"result", // computed, capped, skipped
		},
	)
)

func TextPartInc(kind string) {
	metricTextPart.WithLabelValues(kind).Inc()
}

func GtubeInc() {
	metricGtube.Inc()
}

func DegradeInc(stage string) {
	metricDegrade.WithLabelValues(stage).Inc()
}

func DistanceInc(result string) {
	metricDistance.WithLabelValues(result).Inc()
}

package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opskpi_question_duration_seconds",
			Help:    "End-to-end question answering duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	QuestionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opskpi_question_total",
			Help: "Questions processed, by outcome",
		},
		[]string{"status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opskpi_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	DatasetUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opskpi_dataset_uploads_total",
			Help: "Dataset uploads, by outcome",
		},
		[]string{"status"},
	)

	DatasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "opskpi_dataset_rows",
			Help: "Rows in the currently loaded dataset",
		},
	)
)

func Init() {
	prometheus.MustRegister(QuestionDuration)
	prometheus.MustRegister(QuestionTotal)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(DatasetUploads)
	prometheus.MustRegister(DatasetRows)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotter_detections_total",
		Help: "Total number of detections returned across all requests",
	})

	framesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotter_frames_analyzed_total",
		Help: "Total number of video frames received for batch analysis",
	})

	frameFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotter_frame_failures_total",
		Help: "Frames dropped from a batch because inference failed",
	})

	inferenceSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spotter_inference_duration_seconds",
		Help:    "Wall time of the detection phase of a request",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

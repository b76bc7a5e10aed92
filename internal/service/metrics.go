package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	textRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_text_requests_total",
			Help: "Total number of text model requests by outcome (success, parse_error, error).",
		},
		[]string{"outcome"},
	)

	textRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyboard_text_request_duration_seconds",
		Help:    "Duration of text model requests.",
		Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 160},
	})

	textPromptTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyboard_text_prompt_tokens",
		Help:    "Estimated number of prompt tokens sent to the text model.",
		Buckets: prometheus.ExponentialBuckets(64, 2, 8),
	})

	imageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_image_requests_total",
			Help: "Total number of image model attempts by outcome (success, rate_limited, error, breaker_open).",
		},
		[]string{"outcome"},
	)

	imageRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyboard_image_request_duration_seconds",
		Help:    "Duration of a single image model attempt.",
		Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
	})

	persistFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_persist_fallbacks_total",
		Help: "Total number of frames returned with the temporary model URL because persisting failed.",
	})

	placeholderFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_placeholder_frames_total",
		Help: "Total number of frames rendered with the placeholder image.",
	})

	storyboardsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyboard_generated_total",
			Help: "Total number of storyboard requests by result (success, empty, rate_limited, error).",
		},
		[]string{"result"},
	)

	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	refreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_refreshes_total",
		Help: "Total number of successful token refreshes.",
	})

	tokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Total number of token verification attempts by type and status.",
		},
		[]string{"type", "status"},
	)
)

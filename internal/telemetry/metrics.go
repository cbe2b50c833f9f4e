// Package telemetry holds the Prometheus metrics of the two-stop pipeline.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the pipeline collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	ImagesProcessed   prometheus.Counter
	ImagesFailed      *prometheus.CounterVec
	TransformDuration prometheus.Histogram
	OutputPixels      prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ImagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "twostop",
			Name:      "images_processed_total",
			Help:      "Images that completed provider, transform and sink.",
		}),
		ImagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twostop",
			Name:      "images_failed_total",
			Help:      "Images that failed, by pipeline stage.",
		}, []string{"stage"}),
		TransformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "twostop",
			Name:      "transform_duration_seconds",
			Help:      "Time spent in the two-stop transform per image.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		OutputPixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "twostop",
			Name:      "output_pixels_total",
			Help:      "Pixels written by the two-stop transform.",
		}),
	}
	m.Registry.MustRegister(m.ImagesProcessed, m.ImagesFailed, m.TransformDuration, m.OutputPixels)
	return m
}

// ObserveTransform records one transform call. Safe on a nil receiver.
func (m *Metrics) ObserveTransform(d time.Duration, pixels int) {
	if m == nil {
		return
	}
	m.TransformDuration.Observe(d.Seconds())
	m.OutputPixels.Add(float64(pixels))
}

// Processed counts a finished image. Safe on a nil receiver.
func (m *Metrics) Processed() {
	if m == nil {
		return
	}
	m.ImagesProcessed.Inc()
}

// Failed counts a failed image at stage. Safe on a nil receiver.
func (m *Metrics) Failed(stage string) {
	if m == nil {
		return
	}
	m.ImagesFailed.WithLabelValues(stage).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on port until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

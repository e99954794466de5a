// Package otel publishes goToken counters and latency histograms through an
// OpenTelemetry Meter.
//
// [NewExporter] creates one Int64ObservableCounter per counter and one
// Int64ObservableGauge per cumulative histogram bucket. A single callback reads
// Engine.MetricsSnapshot on each collection. The caller owns the
// MeterProvider.
package otel

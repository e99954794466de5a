// Package prometheus renders goToken metrics in Prometheus text format.
//
// [NewExporter] reads an Engine's MetricsSnapshot on each scrape. Counters are
// named gotoken_*_total; the latency histograms are
// gotoken_issue_latency_seconds and gotoken_decode_latency_seconds. Callers
// mount [Exporter.Handler] themselves; nothing is registered globally.
package prometheus

// Package internaldefs holds the metric names and bucket labels shared by the
// Prometheus and OTel exporters, so both expose identical series.
//
// Bucket labels are derived from goToken.HistogramBounds.
package internaldefs

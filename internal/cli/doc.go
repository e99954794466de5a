// Package cli implements the gotoken command: issue, decode, header and bench
// over an engine configured by internal/config.
package cli

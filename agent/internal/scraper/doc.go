// Package scraper reads live FIT rows from rig data feeds.
//
// Two sources are supported. A gauge source polls an HTTP endpoint in
// Prometheus text format and turns the configured pressure (and optional
// strokes) metric into one row per poll, stamped in the FIT timestamp format.
// A csv source re-reads a file written by a rig data logger and returns the
// rows appended since the previous call.
//
// Authentication for gauge endpoints (mTLS, API key, bearer, basic) is handled
// by authRoundTripper in base.go.
package scraper

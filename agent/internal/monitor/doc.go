// Package monitor tracks the health of each rig data feed and keeps a local
// preview of the FIT so the agent can log the inflection as it happens.
//
// Engine.Process takes the outcome of one scrape and returns a Result with a
// rolling uptime over the last 20 scrapes and a feed state: healthy at 85% or
// more, degraded from 60%, down below that, unknown before the first scrape.
//
// Preview runs the shared pipeline in pkg/compute over every row seen so far.
// It reports when the retained FIT pressure changes, which is the same value
// the server will show once the rows are shipped.
package monitor

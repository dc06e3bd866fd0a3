// Package session holds FIT sessions in memory. A session is one test being
// worked on: its pressure table, the well inputs, the retained FIT pressure
// and a cached analysis. Sessions idle for longer than the TTL are evicted by
// a background loop.
//
// Every edit bumps the session Version and reruns the compute pipeline under
// the session lock, so each version is analysed exactly once and its
// FitState is never written concurrently. Analysis returns that result.
package session

// Package table reads FIT tables from CSV and exports derived series back to
// CSV. It does no cleaning of its own: malformed cells are passed on as raw
// rows for compute.Clean to drop and count.
package table

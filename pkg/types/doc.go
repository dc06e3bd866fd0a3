// Package types defines shared Go types used by the agent, the server and the
// fitctl CLI. RawRow is the wire and table representation of one operator
// edited reading; Sample is the parsed, validated form the compute pipeline
// works on.
package types

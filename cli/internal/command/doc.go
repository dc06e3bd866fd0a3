// Package command implements the fitctl subcommands on cobra.
//
//	fitctl analyze <file.csv> [--tvd] [--mud-weight] [--json] [--export out.csv]
//	fitctl emw --pressure --tvd --mud-weight
//	fitctl push <file.csv> --server URL [--session ID] [--name NAME]
//
// analyze and emw run the pipeline from pkg/compute locally; push uploads a
// table to a fitpoint-server session.
package command

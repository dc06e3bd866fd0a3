package command

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRoot builds the fitctl command tree writing results to out and logs to
// errOut.
func NewRoot(out, errOut io.Writer) *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "fitctl",
		Short:         "Formation integrity test analysis",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(errOut, &slog.HandlerOptions{Level: level})))
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(analyzeCmd())
	root.AddCommand(emwCmd())
	root.AddCommand(pushCmd())
	return root
}

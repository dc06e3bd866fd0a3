package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/types"
)

func emwCmd() *cobra.Command {
	var (
		pressure float64
		well     types.WellInputs
	)
	cmd := &cobra.Command{
		Use:   "emw",
		Short: "Evaluate mud_weight + pressure / (0.052 * tvd)",
		Example: `  fitctl emw --pressure 250 --tvd 10000 --mud-weight 9.5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st compute.FitState
			if cmd.Flags().Changed("pressure") {
				st.Record(pressure)
			}
			res := compute.CalculateEMW(&st, well)
			fmt.Fprintln(cmd.OutOrStdout(), res.Message())
			if res.Kind == compute.EMWInvalid {
				return res.Err
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&pressure, "pressure", 0, "FIT pressure (psi)")
	cmd.Flags().StringVar(&well.TVD, "tvd", "", "true vertical depth (ft)")
	cmd.Flags().StringVar(&well.MudWeight, "mud-weight", "", "mud weight (ppg)")
	return cmd
}

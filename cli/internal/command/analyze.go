package command

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/table"
	"github.com/fitpoint/fitpoint/pkg/types"
)

// report is the --json output of analyze.
type report struct {
	Status          string          `json:"status"`
	Error           string          `json:"error,omitempty"`
	Samples         int             `json:"samples"`
	DroppedTime     int             `json:"dropped_time"`
	DroppedPressure int             `json:"dropped_pressure"`
	Inflection      *inflectionJSON `json:"inflection,omitempty"`
	FitPressure     string          `json:"fit_pressure"`
	EMW             emwJSON         `json:"emw"`
}

type inflectionJSON struct {
	Index    int     `json:"index"`
	Time     string  `json:"time"`
	Pressure float64 `json:"pressure"`
}

type emwJSON struct {
	Kind    string   `json:"kind"`
	Value   *float64 `json:"value,omitempty"`
	Message string   `json:"message"`
}

func analyzeCmd() *cobra.Command {
	var (
		well     types.WellInputs
		asJSON   bool
		exportTo string
	)
	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Find the FIT pressure in a table and compute the EMW",
		Long: `Read a FIT table (Time, Pressure, optional Strokes), compute the first
and second pressure derivatives, report the first sample where the second
derivative turns negative and evaluate the equivalent mud weight.

Examples:
  fitctl analyze fit.csv --tvd 10000 --mud-weight 9.5
  fitctl analyze fit.csv --json
  fitctl analyze fit.csv --export derived.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readTable(args[0])
			if err != nil {
				return err
			}

			var st compute.FitState
			a := compute.Process(rows, well, &st)
			slog.Debug("fitctl: analyzed", "file", args[0], "rows", len(rows), "status", a.Status)

			if exportTo != "" {
				if err := exportDerived(exportTo, a.Derived); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toReport(a))
			}
			writeText(cmd.OutOrStdout(), a)
			return nil
		},
	}
	cmd.Flags().StringVar(&well.TVD, "tvd", "", "true vertical depth (ft)")
	cmd.Flags().StringVar(&well.MudWeight, "mud-weight", "", "mud weight (ppg)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&exportTo, "export", "", "write the derived series to this CSV file")
	return cmd
}

func readTable(path string) ([]types.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	rows, err := table.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func exportDerived(path string, d compute.DerivedSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := table.WriteDerivedCSV(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toReport(a *compute.Analysis) report {
	r := report{
		Status:          a.Status,
		Samples:         len(a.Clean.Series),
		DroppedTime:     a.Clean.DroppedTime,
		DroppedPressure: a.Clean.DroppedPressure,
		FitPressure:     a.FitPressureText(),
		EMW:             emwJSON{Kind: string(a.EMW.Kind), Message: a.EMW.Message()},
	}
	if a.Err != nil {
		r.Error = a.Err.Error()
	}
	if a.Inflection.Found {
		r.Inflection = &inflectionJSON{
			Index:    a.Inflection.Index,
			Time:     compute.FormatTime(a.Inflection.Time),
			Pressure: a.Inflection.Pressure,
		}
	}
	if a.EMW.Kind == compute.EMWValue {
		v := a.EMW.Rounded()
		r.EMW.Value = &v
	}
	return r
}

func writeText(w io.Writer, a *compute.Analysis) {
	fmt.Fprintf(w, "Samples:      %d", len(a.Clean.Series))
	if n := a.Clean.Dropped(); n > 0 {
		fmt.Fprintf(w, " (%d rows dropped)", n)
	}
	fmt.Fprintln(w)

	switch a.Status {
	case compute.StatusInvalid:
		fmt.Fprintf(w, "Status:       invalid (%v)\n", a.Err)
	case compute.StatusInsufficient:
		fmt.Fprintln(w, "Status:       need at least two samples")
	default:
		fmt.Fprintln(w, "Status:       ok")
	}

	if a.Inflection.Found {
		fmt.Fprintf(w, "Inflection:   row %d at %s\n", a.Inflection.Index+1, compute.FormatTime(a.Inflection.Time))
	}
	fmt.Fprintf(w, "FIT pressure: %s\n", a.FitPressureText())
	fmt.Fprintf(w, "FIT EMW:      %s\n", a.EMW.Message())
}

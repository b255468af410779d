package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/timeclock/internal/report"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type extractOptions struct {
	Start       string
	End         string
	Users       []string
	Branches    []string
	Departments []string
	All         bool
	Report      string
}

func (o *extractOptions) request() types.ExtractRequest {
	end := o.End
	if end == "" {
		end = o.Start
	}
	return types.ExtractRequest{
		StartDate:     o.Start,
		EndDate:       end,
		UserIDs:       o.Users,
		BranchIDs:     o.Branches,
		DepartmentIDs: o.Departments,
		ExtractAll:    o.All,
	}
}

// NewExtractCommand creates the extract command group.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run an extraction for a date range",
	}
	cmd.AddCommand(newExtractTimeclocksCommand(rootOpts))
	cmd.AddCommand(newExtractTimeLogsCommand(rootOpts))
	return cmd
}

func bindExtractFlags(cmd *cobra.Command, o *extractOptions) {
	f := cmd.Flags()
	f.StringVar(&o.Start, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&o.End, "end", "", "last day, YYYY-MM-DD (default --start)")
	f.StringSliceVar(&o.Users, "users", nil, "user ids")
	f.StringSliceVar(&o.Branches, "branches", nil, "branch ids")
	f.StringSliceVar(&o.Departments, "departments", nil, "department ids")
	f.BoolVar(&o.All, "all", false, "every active user with an employee id")
	f.StringVar(&o.Report, "report", "", "also write an .xlsx report to this path")
	_ = cmd.MarkFlagRequired("start")
}

func newExtractTimeclocksCommand(rootOpts *RootOptions) *cobra.Command {
	o := &extractOptions{}
	cmd := &cobra.Command{
		Use:          "timeclocks",
		Short:        "Create and close timeclock records from terminal events",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := a.Timeclocks.Extract(cmd.Context(), o.request())
			if err != nil {
				return err
			}
			if o.Report != "" {
				if err := writeReport(o.Report, func(w io.Writer) error {
					return report.WriteTimeclocks(w, res, a.Config.Location())
				}); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, res)
			}
			_, err = fmt.Fprintf(out, "created %d, closed %d, dropped %d\n",
				len(res.Created), len(res.Closed), res.Dropped)
			return err
		},
	}
	bindExtractFlags(cmd, o)
	return cmd
}

func newExtractTimeLogsCommand(rootOpts *RootOptions) *cobra.Command {
	o := &extractOptions{}
	cmd := &cobra.Command{
		Use:          "timelogs",
		Short:        "Copy terminal events into time logs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := a.TimeLogs.Extract(cmd.Context(), o.request())
			if err != nil {
				return err
			}
			if o.Report != "" {
				if err := writeReport(o.Report, func(w io.Writer) error {
					return report.WriteTimeLogs(w, res, a.Config.Location())
				}); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, res)
			}
			_, err = fmt.Fprintf(out, "created %d, dropped %d\n", len(res.Created), res.Dropped)
			return err
		},
	}
	bindExtractFlags(cmd, o)
	return cmd
}

func writeReport(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSeedDevCommand(rootOpts *RootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "seed-dev",
		Short: "Fill the sqlite store with demo devices, users, schedules and events",
		Long: `Seeds demo data ending today. Safe to run repeatedly; rows that
already exist are left alone. Only the sqlite store backend is supported.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.SeedDev(cmd.Context(), days); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d day(s) into %s\n", days, a.Config.Store.SQLitePath)
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 3, "days of schedules and events to seed")
	return cmd
}

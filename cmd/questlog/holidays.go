package main

import (
	"github.com/spf13/cobra"

	"github.com/Magget135/Minimal-Quest-Log/internal/holiday"
)

func newHolidaysCmd(c *cli) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List or seed US federal holidays",
	}
	cmd.PersistentFlags().IntVar(&year, "year", 0, "calendar year (default current year)")

	resolveYear := func() int {
		if year != 0 {
			return year
		}
		return c.clock.Now().Year()
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the holidays of a year",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printJSON(cmd.OutOrStdout(), holiday.USFederal(resolveYear()))
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Add the holidays of a year as quests",
			RunE: func(cmd *cobra.Command, args []string) error {
				app, st, err := c.openApp()
				if err != nil {
					return err
				}
				defer st.Close()

				res, err := app.Holidays.Seed(cmd.Context(), resolveYear())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			},
		},
	)
	return cmd
}

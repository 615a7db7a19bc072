package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
)

func newMaterializeCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Create today's recurring quests once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, st, err := c.openApp()
			if err != nil {
				return err
			}
			defer st.Close()

			day := app.Materializer.Today()
			if strings.TrimSpace(date) != "" {
				day, err = calendar.Parse(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}

			res, err := app.Materializer.Run(cmd.Context(), day)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			return res.Err()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "run for this YYYY-MM-DD instead of today")
	return cmd
}

func newExportICSCmd(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Write the recurring rules as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStores()
			if err != nil {
				return err
			}
			defer st.Close()

			rules, err := st.Rules.List(cmd.Context())
			if err != nil {
				return err
			}
			body, err := recurrence.BuildCalendarICS(rules, c.clock.Now())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
				return err
			}
			c.log.Info("calendar_exported", "path", out, "rules", len(rules))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

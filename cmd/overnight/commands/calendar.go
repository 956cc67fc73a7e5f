package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/overnight/internal/calendar"
	"github.com/wonny/overnight/pkg/config"
)

// calendarCmd groups trading calendar queries.
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Query the trading calendar",
}

// calendarCheckCmd answers whether a date is a trading day and what the next
// trading day is. It needs only the holiday table, not the full app.
var calendarCheckCmd = &cobra.Command{
	Use:   "check [date]",
	Short: "Check whether a date is a trading day",
	Long: `Check whether the given date (YYYY-MM-DD, default today) is a trading
day, and print the next trading day after it.

Example:
  overnight calendar check 2026-02-14`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		table, err := calendar.LoadTable(cfg.Engine.CalendarPath)
		if err != nil {
			return err
		}
		cal, err := calendar.New(table)
		if err != nil {
			return err
		}

		date := time.Now().In(cal.Location())
		if len(args) == 1 {
			date, err = time.ParseInLocation("2006-01-02", args[0], cal.Location())
			if err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", args[0], err)
			}
		}
		date = cal.Normalize(date)

		if !cal.CoversYear(date.Year()) {
			return fmt.Errorf("holiday table does not cover %d", date.Year())
		}

		if cal.IsTradingDay(date) {
			fmt.Printf("%s is a trading day\n", date.Format("2006-01-02"))
		} else if name := cal.HolidayName(date); name != "" {
			fmt.Printf("%s is a holiday (%s)\n", date.Format("2006-01-02"), name)
		} else {
			fmt.Printf("%s is a weekend\n", date.Format("2006-01-02"))
		}

		next, err := cal.NextTradingDay(date)
		if err != nil {
			return err
		}
		fmt.Printf("next trading day: %s\n", next.Format("2006-01-02"))
		return nil
	},
}

func init() {
	calendarCmd.AddCommand(calendarCheckCmd)
	rootCmd.AddCommand(calendarCmd)
}

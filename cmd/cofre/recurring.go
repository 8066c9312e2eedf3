package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/cli"
	"github.com/Veraticus/cofre/internal/model"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Recurring monthly expenses",
		Long: `Detect categories your family pays every month, list the ones that have
not shown up yet, and record how a missing one was resolved.`,
	}

	cmd.AddCommand(detectRecurringCmd())
	cmd.AddCommand(missingRecurringCmd())
	cmd.AddCommand(confirmRecurringCmd())

	return cmd
}

func detectRecurringCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "List recurring expense patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			actor, err := currentActor()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			detector, err := newDetector(store)
			if err != nil {
				return err
			}

			patterns, err := detector.DetectPatterns(ctx, actor.FamilyID, model.MonthRef(month))
			if err != nil {
				return err
			}

			if len(patterns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No recurring expenses found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, cli.HeaderStyle.Render("CATEGORY\tAVERAGE\tMONTHS\tLAST SEEN\tCONFIDENCE"))
			for _, p := range patterns {
				fmt.Fprintf(w, "%s\t%.2f\t%d\t%s\t%s\n",
					cli.FormatCategory(p.CategoryID, p.SubcategoryID),
					p.AverageAmount,
					p.OccurrenceCount,
					p.LastOccurrenceDate.Format("2006-01-02"),
					cli.FormatConfidence(p.Confidence))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Reference month as YYYY-MM (default: current month)")

	return cmd
}

func missingRecurringCmd() *cobra.Command {
	var month, year int

	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List recurring expenses not seen in a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			actor, err := currentActor()
			if err != nil {
				return err
			}

			now := time.Now()
			if month == 0 {
				month = int(now.Month())
			}
			if year == 0 {
				year = now.Year()
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			detector, err := newDetector(store)
			if err != nil {
				return err
			}

			missing, err := detector.FindMissing(ctx, actor.FamilyID, month, year)
			if err != nil {
				return err
			}

			if len(missing) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("All recurring expenses seen for %04d-%02d", year, month)))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, cli.HeaderStyle.Render("CATEGORY\tEXPECTED\tSTATUS\tCONFIDENCE"))
			for _, m := range missing {
				status := string(m.ConfirmationStatus)
				if m.ConfirmationStatus == model.StatusNone {
					status = cli.WarningStyle.Render(status)
				}
				fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n",
					cli.FormatCategory(m.Pattern.CategoryID, m.Pattern.SubcategoryID),
					m.Pattern.AverageAmount,
					status,
					cli.FormatConfidence(m.Pattern.Confidence))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (default: current)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (default: current)")

	return cmd
}

func confirmRecurringCmd() *cobra.Command {
	var month, kind string

	cmd := &cobra.Command{
		Use:   "confirm <category> [subcategory]",
		Short: "Resolve a missing recurring expense for a month",
		Example: `  cofre recurring confirm moradia aluguel --month 2025-09 --type registered
  cofre recurring confirm lazer streaming --month 2025-09 --type ignored`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			actor, err := currentActor()
			if err != nil {
				return err
			}

			confirmation := model.RecurringConfirmation{
				CategoryID:       args[0],
				MonthRef:         model.MonthRef(month),
				ConfirmationType: model.ConfirmationType(kind),
			}
			if len(args) > 1 {
				confirmation.SubcategoryID = args[1]
			}
			if confirmation.MonthRef == "" {
				confirmation.MonthRef = model.MonthOf(time.Now())
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			detector, err := newDetector(store)
			if err != nil {
				return err
			}

			saved, err := detector.Confirm(ctx, actor, confirmation)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s marked %s for %s",
				cli.FormatCategory(saved.CategoryID, saved.SubcategoryID),
				saved.ConfirmationType,
				saved.MonthRef)))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().StringVar(&kind, "type", string(model.ConfirmationRegistered), "Resolution: no_payment, registered or ignored")

	return cmd
}

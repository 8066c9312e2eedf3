package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/cli"
	"github.com/Veraticus/cofre/internal/model"
)

func feedbackCmd() *cobra.Command {
	var req model.FeedbackRequest
	var scope string

	cmd := &cobra.Command{
		Use:   "feedback <descriptor>",
		Short: "Correct a categorization and teach cofre the merchant",
		Long: `Record the category you chose for a descriptor. Unless --learn=false is
given, the merchant's fingerprint is learned so future transactions from it
are categorized the same way for the chosen scope.`,
		Example: `  cofre feedback --user alice "ZEQUINHA ARTESANATO" --category compras
  cofre feedback --user alice --family fam-1 --scope family "FEIRA DO JOAO" --category alimentacao --subcategory feira`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			actor, err := currentActor()
			if err != nil {
				return err
			}
			parsed, err := model.ParseScope(scope)
			if err != nil {
				return err
			}
			req.RawDescriptor = args[0]
			req.Scope = parsed

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := newLearner(store).RecordFeedback(ctx, actor, req)
			if err != nil {
				return err
			}

			switch {
			case result.Conflict:
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
					"Conflict: %q is already learned as %s (policy %s)",
					args[0],
					cli.FormatCategory(result.ExistingCategoryID, result.ExistingSubcategoryID),
					cfg.Learning.ConflictPolicy)))
			case result.Learned:
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
					"Rule %s %s (%d examples)", result.RuleID, result.Action, result.ExamplesCount)))
			default:
				fmt.Fprintln(out, cli.FormatSuccess("Feedback recorded"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.UserCategoryID, "category", "", "Category chosen by the user")
	cmd.Flags().StringVar(&req.UserSubcategoryID, "subcategory", "", "Subcategory chosen by the user")
	cmd.Flags().StringVar(&req.TransactionID, "transaction", "", "Transaction to recategorize")
	cmd.Flags().StringVar(&scope, "scope", string(model.ScopeUser), "Rule scope (user, family, global)")
	cmd.Flags().BoolVar(&req.ApplyToFuture, "learn", true, "Learn a rule for future transactions")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

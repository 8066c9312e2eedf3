package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cofre/internal/cli"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/normalize"
	"github.com/Veraticus/cofre/internal/service"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage learned rules",
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(archiveRuleCmd())
	cmd.AddCommand(similarRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	var (
		scope    string
		category string
		limit    int
		archived bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned rules visible to the user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			actor, err := currentActor()
			if err != nil {
				return err
			}

			scopes := []model.Scope{model.ScopeUser}
			if actor.FamilyID != "" {
				scopes = append(scopes, model.ScopeFamily)
			}
			if scope != "" {
				parsed, err := model.ParseScope(scope)
				if err != nil {
					return err
				}
				scopes = []model.Scope{parsed}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var rules []model.LearnedRule
			for _, s := range scopes {
				scopeID := actor.ScopeID(s)
				found, err := store.ListRules(ctx, service.RuleFilter{
					ScopeType:       &s,
					ScopeID:         &scopeID,
					CategoryID:      category,
					Limit:           limit,
					IncludeArchived: archived,
				})
				if err != nil {
					return err
				}
				rules = append(rules, found...)
			}

			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No rules learned yet."))
				return nil
			}
			return printRules(rules)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Only this scope (user, family, global)")
	cmd.Flags().StringVar(&category, "category", "", "Only rules for this category")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rules per scope (0 for all)")
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived rules")

	return cmd
}

func archiveRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <rule-id>",
		Short: "Stop a learned rule from matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := newLearner(store).ArchiveRule(ctx, actor, args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Archived rule "+args[0]))
			return nil
		},
	}
}

func similarRulesCmd() *cobra.Command {
	var (
		scope    string
		distance int
	)

	cmd := &cobra.Command{
		Use:   "similar <descriptor>",
		Short: "Find rules whose fingerprint is close to a descriptor's",
		Long: `Find learned rules within --distance edits of the descriptor's merchant
fingerprint. Useful for spotting the same merchant learned under slightly
different spellings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			actor, err := currentActor()
			if err != nil {
				return err
			}
			parsed, err := model.ParseScope(scope)
			if err != nil {
				return err
			}

			fingerprint, _, ok := normalize.New(cfg.Engine.StrongTokens).Fingerprint(args[0]).Preferred()
			if !ok {
				return fmt.Errorf("descriptor %q has no merchant fingerprint", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.FindSimilarRules(ctx, parsed, actor.ScopeID(parsed), fingerprint, distance)
			if err != nil {
				return err
			}

			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No similar rules for "+fingerprint))
				return nil
			}
			return printRules(rules)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(model.ScopeUser), "Scope to search (user, family, global)")
	cmd.Flags().IntVar(&distance, "distance", 2, "Maximum edit distance")

	return cmd
}

func printRules(rules []model.LearnedRule) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, cli.HeaderStyle.Render("ID\tSCOPE\tFINGERPRINT\tCATEGORY\tEXAMPLES\tCONFIDENCE"))
	for _, r := range rules {
		fingerprint := r.Fingerprint
		if r.IsArchived {
			fingerprint = cli.SubtleStyle.Render(fingerprint + " (archived)")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID,
			r.ScopeType,
			fingerprint,
			cli.FormatCategory(r.CategoryID, r.SubcategoryID),
			r.ExamplesCount,
			cli.FormatConfidence(r.ConfidenceBase))
	}
	return w.Flush()
}
